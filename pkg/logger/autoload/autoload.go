// Package autoload initializes the global logger from the environment
// as an import side effect.
package autoload

import (
	configx "github.com/stepmatch/onboarding/pkg/config"
	logx "github.com/stepmatch/onboarding/pkg/logger"
)

func init() {
	cfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*cfg)
}
