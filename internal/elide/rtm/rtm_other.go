//go:build !amd64 || purego

package rtm

const archSupported = false

func xbegin() uint32 { return 0 }

func xend() { panic("rtm: transactional memory is not available on this platform") }

func xabort(uint8) {}

func xtest() bool { return false }
