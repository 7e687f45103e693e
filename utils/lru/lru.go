// Package lru has a bounded recency set for transport request ids.
package lru

import (
	"container/list"
	"sync"
)

type Set struct {
	maxSize int
	items   map[uint64]*list.Element
	list    *list.List
	mu      sync.Mutex
}

func New(maxSize int) *Set {
	if maxSize < 1 {
		panic("assertion error: maxSize < 1")
	}
	return &Set{
		maxSize: maxSize,
		items:   make(map[uint64]*list.Element, maxSize),
		list:    list.New(),
	}
}

// Add marks key as recently seen, evicting the oldest entry at capacity.
func (l *Set) Add(key uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	element, ok := l.items[key]
	if ok {
		l.list.MoveToFront(element)
		return
	}

	if len(l.items) >= l.maxSize {
		element = l.list.Back()
		l.list.Remove(element)
		delete(l.items, element.Value.(uint64))
	}

	l.items[key] = l.list.PushFront(key)
}

func (l *Set) Contains(key uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.items[key]
	return ok
}
