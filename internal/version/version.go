// Package version хранит сведения о сборке, заданные через -ldflags:
//
//	-X github.com/vladislavdragonenkov/eventhub/internal/version.version=v1.2.0
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// String форматирует сведения о сборке для логов и /healthz.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}

// Short возвращает версию с укороченным коммитом, например "v1.2.0+3f2a9c1".
func Short() string {
	c := commit
	if len(c) > 7 {
		c = c[:7]
	}
	if c == "" || c == "unknown" {
		return version
	}
	return version + "+" + c
}
