package edgegate

import "errors"

var (
	// ErrInvalidConfig is wrapped by every [Config.Validate] failure.
	ErrInvalidConfig = errors.New("invalid gate configuration")
	// ErrBuilderUsed is returned when [Builder.Build] is called twice.
	ErrBuilderUsed = errors.New("builder already used")
)
