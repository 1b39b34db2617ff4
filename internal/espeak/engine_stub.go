//go:build !espeak

package espeak

func nativeEngine() (engine, error) {
	return nil, ErrUnavailable
}
