package master

import (
	"testing"

	"go.uber.org/zap"

	"sockboss/pkg/runtimectx"
)

// noopRuntimeContext builds a RuntimeContext whose Rendezvous is rooted at a
// scratch directory and whose Logger discards everything, for tests that
// exercise Master methods touching m.rc without caring about log output.
func noopRuntimeContext(t *testing.T) *runtimectx.RuntimeContext {
	t.Helper()
	return runtimectx.New("echo", t.TempDir(), "", false, zap.NewNop().Sugar())
}
