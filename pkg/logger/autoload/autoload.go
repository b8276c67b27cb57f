// Package autoload initializes the global logger from the LOG_* environment
// on import:
//
//	import _ "github.com/chayanin-t/payagent/pkg/logger/autoload"
package autoload

import (
	configx "github.com/chayanin-t/payagent/pkg/config"
	logx "github.com/chayanin-t/payagent/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
