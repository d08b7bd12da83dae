package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is the release string. Release builds overwrite it:
//
//	go build -ldflags "-X github.com/derickschaefer/spread/cmd.Version=v0.4.1"
var Version = "v0.4.0"

// BuildTime is optionally injected alongside Version:
//
//	-ldflags "-X github.com/derickschaefer/spread/cmd.BuildTime=2026-10-01T12:00:00Z"
var BuildTime = ""

// versionInfo is the structured payload for --format json output.
type versionInfo struct {
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	BuildTime string `json:"build_time,omitempty"`
}

// currentVersion collects the ldflags values plus whatever VCS stamping
// the Go toolchain embedded in the binary.
func currentVersion() versionInfo {
	info := versionInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		BuildTime: BuildTime,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
			if len(info.Revision) > 12 {
				info.Revision = info.Revision[:12]
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the spread version and build information",
	Long: `Print the spread version string and build metadata.

Default output is plain text, one value per line. Use --format json or
--format jsonl for structured output.`,
	Example: `  spread version
  spread version --format json | jq .version`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersion()
		out := cmd.OutOrStdout()

		switch globalFlags.Format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case "jsonl":
			return json.NewEncoder(out).Encode(info)
		}

		fmt.Fprintf(out, "spread  %s\n", info.Version)
		if info.Revision != "" {
			dirty := ""
			if info.Modified {
				dirty = " (modified)"
			}
			fmt.Fprintf(out, "commit  %s%s\n", info.Revision, dirty)
		}
		fmt.Fprintf(out, "go      %s\n", info.GoVersion)
		fmt.Fprintf(out, "os      %s/%s\n", info.GOOS, info.GOARCH)
		if info.BuildTime != "" {
			fmt.Fprintf(out, "built   %s\n", info.BuildTime)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
