package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
)

// InstrumentEnv builds the KEY=VALUE pairs injected into the discovery
// child process: the env_file entries (when configured) plus the
// instrumentation variable. The instrumentation variable is placed last
// so it wins over an env-file entry of the same name.
func (l *LoadResult) InstrumentEnv() ([]string, error) {
	var env []string

	if l.Config.EnvFile != "" {
		path := l.Config.EnvFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(l.ProjectRoot, path)
		}
		vars, err := godotenv.Read(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("env file %s not found", l.Config.EnvFile)
			}
			return nil, fmt.Errorf("reading env file %s: %w", l.Config.EnvFile, err)
		}

		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+vars[k])
		}
	}

	env = append(env, l.Config.InstrumentVar()+"="+l.Config.InstrumentValue())
	return env, nil
}
