package logging

import "github.com/sirupsen/logrus"

// BaseFields tags an entry with the action that produced it.
func BaseFields(action, path string) logrus.Fields {
	return logrus.Fields{
		"action": action,
		"path":   path,
	}
}

// RunFields describes one bundling invocation.
func RunFields(sources int, outFile, mapFile, backend string, dryRun bool) logrus.Fields {
	return logrus.Fields{
		"sources":  sources,
		"out_file": outFile,
		"map_file": mapFile,
		"backend":  backend,
		"dry_run":  dryRun,
	}
}
