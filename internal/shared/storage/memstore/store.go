// Package memstore 基于内存的 storage.Gateway 实现
//
// 仅用于测试和本地开发：文档以 bson.M 形式保存，经过 bson 编解码往返，
// 因此与 mongostore 的字段命名、ObjectID、时间精度行为一致。
// 支持的更新操作符：$set、$push、$addToSet、$pull。
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"reminder/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store 内存文档存储
type Store struct {
	mu     sync.RWMutex
	cols   map[string]*collection
	unique map[string][]string
	down   bool
}

var _ storage.Gateway = (*Store)(nil)

// Option Store 配置项
type Option func(*Store)

// WithUniqueIndex 声明集合上的唯一字段，插入重复值时返回 storage.ErrDuplicate
func WithUniqueIndex(col string, fields ...string) Option {
	return func(s *Store) {
		s.unique[col] = append(s.unique[col], fields...)
	}
}

// New 创建内存存储
func New(opts ...Option) *Store {
	s := &Store{
		cols:   make(map[string]*collection),
		unique: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection 获取（必要时创建）集合
func (s *Store) Collection(name string) storage.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cols[name]
	if !ok {
		c = &collection{store: s, name: name}
		s.cols[name] = c
	}
	return c
}

// Ping 存储被标记为不可用时返回 storage.ErrUnavailable
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.down {
		return storage.ErrUnavailable
	}
	return nil
}

// Close 无操作
func (s *Store) Close() error {
	return nil
}

// SetDown 模拟存储不可达
func (s *Store) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// Count 返回集合中的文档数（测试辅助）
func (s *Store) Count(col string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cols[col]; ok {
		return len(c.docs)
	}
	return 0
}

// collection 实现 storage.Collection；所有访问持有 Store.mu
type collection struct {
	store *Store
	name  string
	docs  []bson.M
}

func (c *collection) FindOne(ctx context.Context, filter bson.D, out any) error {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if c.store.down {
		return storage.ErrUnavailable
	}

	f, err := toDoc(filter)
	if err != nil {
		return err
	}
	for _, doc := range c.docs {
		if matches(doc, f) {
			return decode(doc, out)
		}
	}
	return storage.ErrNotFound
}

func (c *collection) Find(ctx context.Context, filter bson.D, out any) error {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if c.store.down {
		return storage.ErrUnavailable
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("memstore: out must be a pointer to a slice, got %T", out)
	}
	f, err := toDoc(filter)
	if err != nil {
		return err
	}

	slice := rv.Elem()
	elemType := slice.Type().Elem()
	result := reflect.MakeSlice(slice.Type(), 0, len(c.docs))
	for _, doc := range c.docs {
		if !matches(doc, f) {
			continue
		}
		if elemType.Kind() == reflect.Pointer {
			item := reflect.New(elemType.Elem())
			if err := decode(doc, item.Interface()); err != nil {
				return err
			}
			result = reflect.Append(result, item)
		} else {
			item := reflect.New(elemType)
			if err := decode(doc, item.Interface()); err != nil {
				return err
			}
			result = reflect.Append(result, item.Elem())
		}
	}
	slice.Set(result)
	return nil
}

func (c *collection) InsertOne(ctx context.Context, doc any) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.down {
		return storage.ErrUnavailable
	}

	d, err := toDoc(doc)
	if err != nil {
		return err
	}
	if _, ok := d["_id"]; !ok {
		d["_id"] = bson.NewObjectID()
	}

	fields := append([]string{"_id"}, c.store.unique[c.name]...)
	for _, existing := range c.docs {
		for _, field := range fields {
			v, ok := d[field]
			if ok && reflect.DeepEqual(existing[field], v) {
				return fmt.Errorf("memstore: %s.%s: %w", c.name, field, storage.ErrDuplicate)
			}
		}
	}

	c.docs = append(c.docs, d)
	return nil
}

func (c *collection) UpdateOne(ctx context.Context, filter, update bson.D) (*storage.UpdateResult, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.down {
		return nil, storage.ErrUnavailable
	}

	f, err := toDoc(filter)
	if err != nil {
		return nil, err
	}
	u, err := toDoc(update)
	if err != nil {
		return nil, err
	}

	for i, doc := range c.docs {
		if !matches(doc, f) {
			continue
		}
		next := normalize(doc).(bson.M)
		changed, err := applyUpdate(next, u)
		if err != nil {
			return nil, err
		}
		res := &storage.UpdateResult{MatchedCount: 1}
		if changed {
			c.docs[i] = next
			res.ModifiedCount = 1
		}
		return res, nil
	}
	return &storage.UpdateResult{}, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter bson.D) (*storage.DeleteResult, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.down {
		return nil, storage.ErrUnavailable
	}

	f, err := toDoc(filter)
	if err != nil {
		return nil, err
	}
	for i, doc := range c.docs {
		if matches(doc, f) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return &storage.DeleteResult{DeletedCount: 1}, nil
		}
	}
	return &storage.DeleteResult{}, nil
}
