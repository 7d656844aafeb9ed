package client

import (
	"context"

	"github.com/taskboard/taskboard/client/internal/shardqueue"
)

// executor abstracts the internal job runner the cache fetches on.
type executor interface {
	Submit(context.Context, string, shardqueue.Job) error
	Stop()
}
