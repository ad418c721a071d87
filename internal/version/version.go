// Package version reports build information. Values are injected at build
// time:
//
//	go build -ldflags "-X github.com/leofalp/owlseer/internal/version.gitVersion=v0.3.0 \
//	  -X github.com/leofalp/owlseer/internal/version.gitCommit=$(git rev-parse HEAD) \
//	  -X github.com/leofalp/owlseer/internal/version.buildDate=$(date -u +'%Y-%m-%dT%H:%M:%SZ')"
//
// Without ldflags, the module version and VCS revision recorded by the Go
// toolchain are used when available.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/gosuri/uitable"
)

var (
	gitVersion = "v0.0.0-dev"
	gitCommit  = ""
	buildDate  = ""
)

// Info describes the running binary.
type Info struct {
	GitVersion string `json:"gitVersion"`
	GitCommit  string `json:"gitCommit,omitempty"`
	BuildDate  string `json:"buildDate,omitempty"`
	GoVersion  string `json:"goVersion"`
	Platform   string `json:"platform"`
}

// Get returns the build information of the running binary.
func Get() Info {
	info := Info{
		GitVersion: gitVersion,
		GitCommit:  gitCommit,
		BuildDate:  buildDate,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	if build, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(&info, build)
	}
	return info
}

func fillFromBuildInfo(info *Info, build *debug.BuildInfo) {
	if info.GitVersion == "v0.0.0-dev" && build.Main.Version != "" && build.Main.Version != "(devel)" {
		info.GitVersion = build.Main.Version
	}
	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = setting.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = setting.Value
			}
		}
	}
}

func (info Info) String() string {
	return info.GitVersion
}

// JSON returns the indented JSON form.
func (info Info) JSON() (string, error) {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal version info: %w", err)
	}
	return string(data), nil
}

// Text renders the information as an aligned table.
func (info Info) Text() string {
	table := uitable.New()
	table.RightAlign(0)
	table.Separator = " "
	table.AddRow("version:", info.GitVersion)
	if info.GitCommit != "" {
		table.AddRow("commit:", info.GitCommit)
	}
	if info.BuildDate != "" {
		table.AddRow("built:", info.BuildDate)
	}
	table.AddRow("go:", info.GoVersion)
	table.AddRow("platform:", info.Platform)
	return table.String()
}
