package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	crawlErr := &ServerError{
		Op:       "Start",
		Err:      errors.New("workload fetch failed"),
		ExitCode: ExitCrawlError,
	}

	assert.Equal(t, ExitCrawlError, exitCode(crawlErr))
	assert.Equal(t, ExitCrawlError, exitCode(fmt.Errorf("wrapped: %w", crawlErr)))
	assert.Equal(t, ExitConfigError, exitCode(errors.New("plain error")))
}
