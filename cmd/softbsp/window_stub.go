//go:build !window

package main

import (
	"errors"

	"github.com/taigrr/softbsp/pkg/config"
	"github.com/taigrr/softbsp/pkg/level"
)

func window(*config.Config, *level.Level) error {
	return errors.New("window mode needs a build with -tags window")
}
