package daemon

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// hostMemory is the subset of /proc/meminfo the periodic operational
// snapshot reports.
type hostMemory struct {
	TotalBytes     uint64
	AvailableBytes uint64
}

func readHostMemory() (hostMemory, error) {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return hostMemory{}, err
	}
	defer file.Close()

	values := make(map[string]uint64)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		key := strings.TrimSuffix(fields[0], ":")
		if key != "MemTotal" && key != "MemAvailable" {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		values[key] = v
	}
	if err := scanner.Err(); err != nil {
		return hostMemory{}, err
	}

	return hostMemory{
		TotalBytes:     values["MemTotal"] * 1024,
		AvailableBytes: values["MemAvailable"] * 1024,
	}, nil
}

func readLoadAverage() (one, five, fifteen float64, err error) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, 0, 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return 0, 0, 0, nil
	}
	one, _ = strconv.ParseFloat(fields[0], 64)
	five, _ = strconv.ParseFloat(fields[1], 64)
	fifteen, _ = strconv.ParseFloat(fields[2], 64)
	return one, five, fifteen, nil
}
