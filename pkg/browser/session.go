package browser

import (
	"sync"

	"go.uber.org/zap"

	"github.com/entrhq/notepress/pkg/page"
)

// Session owns one automation attachment and the single active page for
// the current run. It never owns the browser process itself.
type Session struct {
	// Page is the active page the workflow operates on.
	Page page.Page

	conn      Conn
	logger    *zap.Logger
	closeOnce sync.Once
}

// Close disconnects automation from the browser. The browser process and
// profile survive for the next invocation.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.conn != nil {
			err = s.conn.Close()
		}
		s.logger.Info("disconnected from browser")
	})
	return err
}
