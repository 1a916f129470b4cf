package socket

import (
	"net"
)

// errClosed 套接字已关闭
var errClosed = net.ErrClosed
