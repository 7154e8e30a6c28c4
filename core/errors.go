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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidRecord indicates a raw record failed validation and was dropped.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrMissingTitle indicates the title is absent or blank.
	ErrMissingTitle = errors.New("title is required")

	// ErrTitleTooShort indicates the trimmed title has fewer than MinTitleLength characters.
	ErrTitleTooShort = errors.New("title too short")

	// ErrMissingSourceType indicates the source_type field is absent or blank.
	ErrMissingSourceType = errors.New("source_type is required")

	// ErrInvalidLocation indicates a location value could not be parsed.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidStoredRecord indicates a stored record violates persistence rules.
	ErrInvalidStoredRecord = errors.New("invalid stored record")
)
