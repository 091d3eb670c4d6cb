package main

import (
	"fmt"
	"strings"

	log "github.com/cihub/seelog"
)

var logLevels = map[string]bool{
	"trace":    true,
	"debug":    true,
	"info":     true,
	"warn":     true,
	"error":    true,
	"critical": true,
}

func loggingConfig(logLevel string, logFile string) (string, error) {
	logLevel = strings.ToLower(logLevel)
	if !logLevels[logLevel] {
		return "", fmt.Errorf("unknown log level %q, options: trace,debug,info,warn,error", logLevel)
	}

	fileOutput := ""
	if logFile != "" {
		fileOutput = `
			<filter levels="error,critical">
				<file path="` + logFile + `"/>
			</filter>`
	}

	config := `
	<seelog type="sync" minlevel="` + logLevel + `">
		<outputs formatid="main">` + fileOutput + `
			<console formatid="main" />
		</outputs>
		<formats>
			<format id="main" format="[%Date(01-02) %Time] [%LEV] %Msg%n"/>
		</formats>
	</seelog>`
	return config, nil
}

func setInitLogging(logLevel string, logFile string) error {
	config, err := loggingConfig(logLevel, logFile)
	if err != nil {
		return err
	}

	logger, err := log.LoggerFromConfigAsString(config)
	if err != nil {
		return fmt.Errorf("init log config error: %v", err)
	}
	return log.ReplaceLogger(logger)
}
