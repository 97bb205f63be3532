//go:build !wasip1

package boundary

// This file is used to stub out the host imports for running tests.

type platformHost struct{}

func (platformHost) GetAccessToken() RawBuffer { return RawBuffer{} }

func (platformHost) GetInstanceURL() RawBuffer { return RawBuffer{} }
