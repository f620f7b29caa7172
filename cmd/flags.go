package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// StandardFlags provides consistent flag definitions across commands.
type StandardFlags struct {
	// Server flags
	Port int
	Host string

	// Site flags
	Root   string
	Output string

	server bool
	build  bool
}

// AddStandardFlags adds the named flag groups ("server", "build") to cmd.
// Every command gets --root.
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{}
	cmd.Flags().StringVar(&flags.Root, "root", ".", "Site root directory")

	for _, flagType := range flagTypes {
		switch flagType {
		case "server":
			addServerFlags(cmd.Flags(), flags)
		case "build":
			addBuildFlags(cmd.Flags(), flags)
		}
	}
	return flags
}

func addServerFlags(fs *pflag.FlagSet, flags *StandardFlags) {
	flags.server = true
	fs.IntVarP(&flags.Port, "port", "p", 3100, "Port to serve on")
	fs.StringVar(&flags.Host, "host", "localhost", "Host to bind to")
}

func addBuildFlags(fs *pflag.FlagSet, flags *StandardFlags) {
	flags.build = true
	fs.StringVarP(&flags.Output, "output", "o", "dist", "Output directory")
}

// Apply overrides configuration keys with the flags the user set.
func (f *StandardFlags) Apply(cmd *cobra.Command, v *viper.Viper) {
	fs := cmd.Flags()
	if fs.Changed("root") {
		v.Set("paths.root", f.Root)
	}
	if f.server {
		if fs.Changed("port") {
			v.Set("server.port", f.Port)
		}
		if fs.Changed("host") {
			v.Set("server.host", f.Host)
		}
	}
	if f.build && fs.Changed("output") {
		v.Set("paths.output", f.Output)
	}
}

// ChildArgs re-creates the changed flags for a child serve process.
func (f *StandardFlags) ChildArgs(cmd *cobra.Command) []string {
	var args []string
	fs := cmd.Flags()
	if fs.Changed("root") {
		args = append(args, "--root", f.Root)
	}
	if f.server {
		if fs.Changed("port") {
			args = append(args, "--port", strconv.Itoa(f.Port))
		}
		if fs.Changed("host") {
			args = append(args, "--host", f.Host)
		}
	}
	return args
}
