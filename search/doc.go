// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package search ranks stored travel records against a free-text query.
//
// The Searcher combines three signals:
//   - Semantic similarity between the query embedding and each record's vector
//   - Category hits, where a query word names one of the record's categories
//   - Verbatim keyword matching over title and description with stop-word filtering
//
// It is a linear scan over the store and is meant for inspecting a loaded
// dataset, not for serving traffic.
package search
