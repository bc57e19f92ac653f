package mailbox

import "errors"

// ErrClosed is returned by Enqueue once the mailbox has been closed.
var ErrClosed = errors.New("mailbox_closed")
