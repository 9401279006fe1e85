package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsure(t *testing.T) {
	ctx, id := Ensure(context.Background(), "abc")
	assert.Equal(t, "abc", id)
	assert.Equal(t, "abc", FromContext(ctx))

	_, id = Ensure(ctx, "")
	assert.Equal(t, "abc", id, "existing context id is kept")

	_, fresh := Ensure(context.Background(), "")
	assert.Len(t, fresh, 32)
	assert.Empty(t, FromContext(context.Background()))
}
