package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "ISW_HTTP_ADDR", envKey("http-addr"))
	assert.Equal(t, "ISW_DB", envKey("db"))
}

func TestBindCommandTree(t *testing.T) {
	t.Setenv("ISW_HTTP_ADDR", "0.0.0.0:9000")
	t.Setenv("ISW_MAJOR_WINDOW", "7.5")

	var addr string
	var window float64
	var follow bool
	root := &cobra.Command{Use: "root"}
	parent := &cobra.Command{Use: "parent"}
	child := &cobra.Command{Use: "child"}
	parent.Flags().StringVar(&addr, "http-addr", "localhost:8080", "")
	child.Flags().Float64Var(&window, "major-window", 5, "")
	child.Flags().BoolVar(&follow, "follow", false, "")
	parent.AddCommand(child)
	root.AddCommand(parent)

	v := viper.New()
	v.Set("follow", true)
	bindCommandTree(root, v)

	assert.Equal(t, "0.0.0.0:9000", addr)
	assert.Equal(t, 7.5, window)
	assert.True(t, follow)
}
