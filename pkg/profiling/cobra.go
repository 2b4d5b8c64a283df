// Package profiling adds pprof output and a startup timing summary to the CLI.
package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
)

// Flags holds the profiling flags of a cobra command tree.
type Flags struct {
	cpuProfileFile *os.File
	cpuProfilePath string
	memProfilePath string
	timing         bool
}

// NewFlags creates an unregistered flag set.
func NewFlags() *Flags {
	return &Flags{}
}

// Register adds --cpu-profile, --mem-profile and --timing to cmd and installs
// the persistent pre/post run hooks.
func (f *Flags) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.cpuProfilePath, "cpu-profile", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&f.memProfilePath, "mem-profile", "", "Write memory profile to file")
	cmd.PersistentFlags().BoolVar(&f.timing, "timing", false, "Print a timing summary of startup phases on exit")
	cmd.PersistentPreRunE = f.PreRun
	cmd.PersistentPostRun = f.PostRun
}

// PreRun starts the requested profiles.
func (f *Flags) PreRun(cmd *cobra.Command, args []string) error {
	if f.timing {
		Enable()
	}

	if f.cpuProfilePath != "" {
		file, err := os.Create(f.cpuProfilePath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		f.cpuProfileFile = file
		if err := pprof.StartCPUProfile(file); err != nil {
			file.Close()
			f.cpuProfileFile = nil
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
	}
	return nil
}

// PostRun writes the profiles and the timing summary to the command's stderr.
func (f *Flags) PostRun(cmd *cobra.Command, args []string) {
	out := cmd.ErrOrStderr()

	if f.cpuProfileFile != nil {
		pprof.StopCPUProfile()
		f.cpuProfileFile.Close()
		f.cpuProfileFile = nil
		fmt.Fprintf(out, "CPU profile written to %s\n", f.cpuProfilePath)
	}

	if f.memProfilePath != "" {
		file, err := os.Create(f.memProfilePath)
		if err != nil {
			fmt.Fprintf(out, "could not create memory profile: %v\n", err)
			return
		}
		defer file.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(file); err != nil {
			fmt.Fprintf(out, "could not write memory profile: %v\n", err)
			return
		}
		fmt.Fprintf(out, "Memory profile written to %s\n", f.memProfilePath)
	}

	if f.timing {
		Summarize(out)
	}
}
