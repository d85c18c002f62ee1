package main

// Flag structs to decouple cobra from logic for testing.

type UpFlags struct {
	ConfigPath string
	DryRun     bool
}

type StatusFlags struct {
	ConfigPath string
	Name       string
}

type LogsFlags struct {
	ConfigPath string
	Name       string
	Tail       int
}

type RestartFlags struct {
	ConfigPath string
	Name       string
}

type BootstrapFlags struct {
	ConfigPath string
}

type RepairFlags struct {
	ConfigPath string
	Yes        bool
}

type ServeFlags struct {
	ConfigPath string
	Listen     string
	BasePath   string
}
