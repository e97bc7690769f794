package interaction

import (
	"io"

	"github.com/recallkit/recallkit/internal/observe"
)

func testObserver() *observe.Observer {
	return observe.New(io.Discard, false)
}
