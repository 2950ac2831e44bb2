package train

import "errors"

// ErrPassRunning is returned by RunPass when another pass is in progress.
var ErrPassRunning = errors.New("a pass is already running")
