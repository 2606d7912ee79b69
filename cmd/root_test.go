package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ask", "migrate", "import", "export", "news", "earnings"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestImportRequiresFileFlag(t *testing.T) {
	flag := importCmd.Flags().Lookup("file")
	assert.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}
