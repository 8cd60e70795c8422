/*
Copyright 2024 Henri Remonen

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package grawlr

import "sync"

// Storer remembers which pages a Harvester has fetched successfully during
// one run. The crawl controller consults it so an entry linked from two
// listing pages is fetched once.
type Storer interface {
	// Visited returns true if the URL has been fetched.
	Visited(url string) bool
	// Visit marks the URL as fetched.
	Visit(url string)
	// Len returns the number of fetched URLs.
	Len() int
}

// InMemoryStore is a Storer backed by a map. It is safe for concurrent use.
type InMemoryStore struct {
	visited map[string]bool
	lock    *sync.RWMutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		visited: make(map[string]bool),
		lock:    &sync.RWMutex{},
	}
}

func (s *InMemoryStore) Visited(url string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.visited[url]
}

func (s *InMemoryStore) Visit(url string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.visited[url] = true
}

func (s *InMemoryStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.visited)
}
