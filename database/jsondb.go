package database

import (
	"context"
	"encoding/json"
	"os"
	"sync"
)

// JsonDB keeps every document in memory and mirrors the whole state to a
// JSON file after each write. An empty path keeps it in memory only.
type JsonDB struct {
	path  string
	state *state
}

type state struct {
	sync.Mutex
	Collections map[string]map[string]json.RawMessage `json:"collections"`
}

func NewJsonDatabase(path string) (*JsonDB, error) {
	db := &JsonDB{
		path: path,
		state: &state{
			Collections: make(map[string]map[string]json.RawMessage),
		},
	}
	err := db.load()
	return db, err
}

func (j *JsonDB) Close() error {
	j.state.Lock()
	defer j.state.Unlock()
	return j.save()
}

func (j *JsonDB) load() error {
	if j.path == "" {
		return nil
	}
	d, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	st := &state{}
	if err := json.Unmarshal(d, st); err != nil {
		return err
	}
	if st.Collections == nil {
		st.Collections = make(map[string]map[string]json.RawMessage)
	}
	j.state = st
	return nil
}

// save expects the state lock to be held.
func (j *JsonDB) save() error {
	if j.path == "" {
		return nil
	}
	d, err := json.Marshal(j.state)
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, d, 0644)
}

func (j *JsonDB) Get(ctx context.Context, collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.state.Lock()
	defer j.state.Unlock()
	v, ok := j.state.Collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (j *JsonDB) Insert(ctx context.Context, collection, id string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.state.Lock()
	defer j.state.Unlock()
	if _, ok := j.state.Collections[collection][id]; ok {
		return ErrExists
	}
	j.put(collection, id, body)
	return j.save()
}

func (j *JsonDB) Update(ctx context.Context, collection, id string, fn func([]byte, bool) ([]byte, error), upsert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.state.Lock()
	defer j.state.Unlock()
	old, found := j.state.Collections[collection][id]
	if !found && !upsert {
		return ErrNotFound
	}
	body, err := fn(old, found)
	if err != nil {
		return err
	}
	j.put(collection, id, body)
	return j.save()
}

func (j *JsonDB) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.state.Lock()
	defer j.state.Unlock()
	if _, ok := j.state.Collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(j.state.Collections[collection], id)
	return j.save()
}

func (j *JsonDB) put(collection, id string, body []byte) {
	c, ok := j.state.Collections[collection]
	if !ok {
		c = make(map[string]json.RawMessage)
		j.state.Collections[collection] = c
	}
	c[id] = append(json.RawMessage(nil), body...)
}
