package moderation

import "sync"

// keyedMutex — взаимное исключение по пользователю: переходы одного
// пользователя применяются строго по очереди, разные пользователи — параллельно.
// Запись живёт, пока её кто-то держит или ждёт; последний выходящий её удаляет,
// так что карта не растёт с каждым новым telegram id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*lockEntry)}
}

func (k *keyedMutex) lock(id int64) func() {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &lockEntry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
