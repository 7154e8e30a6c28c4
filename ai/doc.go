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


// Package ai defines the embedding abstraction used when enriching travel records.
//
// Two implementations are provided:
//
//   - ai/openai: langchaingo client for OpenAI or any OpenAI-compatible server
//   - ai/mock: deterministic test double
//
// Public constructors in ai/openai return the ai.Embedder interface.
// mock.NewMockEmbedder returns the concrete type so tests can inject
// behavior and inspect call counts.
//
//	cfg := ai.NewConfig(ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    return err
//	}
//	vec, err := embedder.EmbedText(ctx, "Grand Hotel Paris luxury hotel")
package ai
