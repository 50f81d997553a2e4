package cli

import "testsearch/internal/config"

// Flags holds command-line flags
type Flags struct {
	Command    string
	Workers    int
	CacheDir   string
	ConfigFile string
	Verbose    int
	Filter     string
	NoFuzzy    bool
	Print      bool
	Last       bool
	All        bool
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		Command:    f.Command,
		Workers:    f.Workers,
		CacheDir:   f.CacheDir,
		ConfigFile: f.ConfigFile,
		Verbose:    f.Verbose,
		Filter:     f.Filter,
		NoFuzzy:    f.NoFuzzy,
		Print:      f.Print,
		Last:       f.Last,
		All:        f.All,
	}
}
