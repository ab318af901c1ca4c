package realtime

import (
	"context"
	"testing"
)

func TestUserChannel(t *testing.T) {
	if got := UserChannel(42); got != "notification:user:42" {
		t.Fatalf("UserChannel(42) = %q", got)
	}
}

func TestEmitWithoutClientIsNoOp(t *testing.T) {
	var emitter *RedisEmitter
	if err := emitter.Emit(context.Background(), 1, EventNotification, nil); err != nil {
		t.Fatalf("nil emitter: %v", err)
	}

	emitter = NewRedisEmitter(nil)
	if err := emitter.Emit(context.Background(), 1, EventNotification, map[string]string{"k": "v"}); err != nil {
		t.Fatalf("emitter without client: %v", err)
	}
}
