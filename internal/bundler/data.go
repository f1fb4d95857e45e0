package bundler

type Request struct {
	// Sources are URLs or local paths, in bundle order.
	Sources []string
	OutFile string
	MapFile string
	// DryRun computes the compiler invocation without fetching or compiling.
	DryRun bool
}

type Result struct {
	inputs    []string
	command   []string
	downloads int
	cacheHits int
	local     int
	dryRun    bool
}

// Inputs are the local paths handed to the compiler, in source order.
func (r Result) Inputs() []string {
	inputs := make([]string, len(r.inputs))
	copy(inputs, r.inputs)
	return inputs
}

func (r Result) Command() []string {
	command := make([]string, len(r.command))
	copy(command, r.command)
	return command
}

// Downloads counts remote sources that were (or, in a dry run, would be)
// fetched because no cache entry existed.
func (r Result) Downloads() int {
	return r.downloads
}

func (r Result) CacheHits() int {
	return r.cacheHits
}

func (r Result) Local() int {
	return r.local
}

func (r Result) DryRun() bool {
	return r.dryRun
}
