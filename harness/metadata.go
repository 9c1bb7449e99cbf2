package harness

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

// Metadata describes the system under test. It is reported with every
// benchmark run.
type Metadata struct {
	CPUType         string `yaml:"cpu_type" mapstructure:"cpu_type" json:"cpu_type"`
	AcceleratorType string `yaml:"accelerator_type" mapstructure:"accelerator_type" json:"accelerator_type"`
	Submitter       string `yaml:"submitter" mapstructure:"submitter" json:"submitter"`
	CPUCoreCount    string `yaml:"cpu_core_count" mapstructure:"cpu_core_count" json:"cpu_core_count"`
	CPURAMCapacity  string `yaml:"cpu_ram_capacity" mapstructure:"cpu_ram_capacity" json:"cpu_ram_capacity"`
	// Cooling is Air, Liquid or Passive.
	Cooling string `yaml:"cooling" mapstructure:"cooling" json:"cooling" validate:"omitempty,oneof=Air Liquid Passive"`
	// CoolingOption is Active (with fan or pump) or Passive.
	CoolingOption   string `yaml:"cooling_option" mapstructure:"cooling_option" json:"cooling_option" validate:"omitempty,oneof=Active Passive"`
	Interconnect    string `yaml:"interconnect" mapstructure:"interconnect" json:"cpu_accelerator_interconnect_interface"`
	BenchmarkModel  string `yaml:"benchmark_model" mapstructure:"benchmark_model" json:"benchmark_model"`
	OperatingSystem string `yaml:"operating_system" mapstructure:"operating_system" json:"operating_system"`
}

var (
	osReleasePath = "/etc/os-release"
	memInfoPath   = "/proc/meminfo"
)

// ApplyDefaults fills core count, RAM and operating system from the host
// when they are not configured.
func (m *Metadata) ApplyDefaults() {
	if m.CPUCoreCount == "" {
		m.CPUCoreCount = strconv.Itoa(runtime.NumCPU())
	}
	if m.CPURAMCapacity == "" {
		m.CPURAMCapacity = hostMemory()
	}
	if m.OperatingSystem == "" {
		m.OperatingSystem = hostOS()
	}
}

// hostOS reads PRETTY_NAME from os-release, falling back to GOOS/GOARCH.
func hostOS() string {
	env, err := godotenv.Read(osReleasePath)
	if err == nil && env["PRETTY_NAME"] != "" {
		return env["PRETTY_NAME"]
	}
	return runtime.GOOS + "/" + runtime.GOARCH
}

// hostMemory reads MemTotal from meminfo and formats it, e.g. "31 GiB".
// It returns "" when the total is unknown.
func hostMemory() string {
	f, err := os.Open(memInfoPath)
	if err != nil {
		return ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || fields[0] != "MemTotal:" {
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return ""
		}
		return humanize.IBytes(kb * 1024)
	}
	return ""
}
