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


// Package sources holds the contract shared by all source adapters.
//
// An adapter turns one external source into raw records. It never returns an
// error: when credentials are missing, the network fails or the upstream
// answers with an unexpected status, it logs the condition and returns
// Fallback with deterministic fixture records so the batch can proceed.
// Malformed entries inside an otherwise good response are logged and skipped
// individually.
//
// Adapters live in sub-packages:
//
//   - sources/expedia: hotel search (Expedia Rapid)
//   - sources/skyscanner: flight search with session polling
//   - sources/feeds: RSS/Atom social feeds (gofeed)
//   - sources/attractions: attraction listings scraped with goquery
//
// All of them share HTTPClient, which adds timeouts, a User-Agent, request
// pacing and bounded retries.
package sources
