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

package ai

// Decorate layers the retry and cache decorators enabled in config over base.
// Retry sits inside the cache so cached hits never wait on backoff.
func Decorate(base Embedder, config *Config) (Embedder, error) {
	embedder := base
	if config.MaxRetries > 0 {
		retrying, err := NewRetryingEmbedder(embedder, config.MaxRetries, config.RetryDelay)
		if err != nil {
			return nil, err
		}
		embedder = retrying
	}
	if config.CacheSize > 0 {
		cached, err := NewCachedEmbedder(embedder, config.CacheSize)
		if err != nil {
			return nil, err
		}
		embedder = cached
	}
	return embedder, nil
}
