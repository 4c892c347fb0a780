package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// QueryHook 每次集合操作完成后回调（指标、慢查询日志）
type QueryHook func(ctx context.Context, operation, collection string, duration time.Duration, err error)

// Instrument 用 hook 包装 Gateway，hook 为 nil 时原样返回
func Instrument(gw Gateway, hook QueryHook) Gateway {
	if hook == nil {
		return gw
	}
	return &instrumentedGateway{Gateway: gw, hook: hook}
}

type instrumentedGateway struct {
	Gateway
	hook QueryHook
}

func (g *instrumentedGateway) Collection(name string) Collection {
	return &instrumentedCollection{col: g.Gateway.Collection(name), name: name, hook: g.hook}
}

type instrumentedCollection struct {
	col  Collection
	name string
	hook QueryHook
}

func (c *instrumentedCollection) observe(ctx context.Context, op string, start time.Time, err error) {
	c.hook(ctx, op, c.name, time.Since(start), err)
}

func (c *instrumentedCollection) FindOne(ctx context.Context, filter bson.D, out any) (err error) {
	defer func(start time.Time) { c.observe(ctx, "find_one", start, err) }(time.Now())
	return c.col.FindOne(ctx, filter, out)
}

func (c *instrumentedCollection) Find(ctx context.Context, filter bson.D, out any) (err error) {
	defer func(start time.Time) { c.observe(ctx, "find", start, err) }(time.Now())
	return c.col.Find(ctx, filter, out)
}

func (c *instrumentedCollection) InsertOne(ctx context.Context, doc any) (err error) {
	defer func(start time.Time) { c.observe(ctx, "insert_one", start, err) }(time.Now())
	return c.col.InsertOne(ctx, doc)
}

func (c *instrumentedCollection) UpdateOne(ctx context.Context, filter, update bson.D) (res *UpdateResult, err error) {
	defer func(start time.Time) { c.observe(ctx, "update_one", start, err) }(time.Now())
	return c.col.UpdateOne(ctx, filter, update)
}

func (c *instrumentedCollection) DeleteOne(ctx context.Context, filter bson.D) (res *DeleteResult, err error) {
	defer func(start time.Time) { c.observe(ctx, "delete_one", start, err) }(time.Now())
	return c.col.DeleteOne(ctx, filter)
}
