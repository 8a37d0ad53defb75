package osutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// cgroup v1 reports this page-aligned max int64 when memory is unrestricted
const unrestrictedMemoryLimit = 9223372036854771712

var cgroupMemoryLimitLocations = []string{
	"/sys/fs/cgroup/memory.max",                   // cgroup v2
	"/sys/fs/cgroup/memory/memory.limit_in_bytes", // cgroup v1
}

// GetTotalMemory returns the total memory available to the process,
// honouring a container memory limit when one is set
func GetTotalMemory() uint64 {
	return totalMemory(memory.TotalMemory(), cgroupMemoryLimitLocations...)
}

func totalMemory(physical uint64, limitLocations ...string) uint64 {
	for _, location := range limitLocations {
		raw, err := os.ReadFile(location)
		if err != nil {
			continue
		}

		limit, ok := parseMemoryLimit(string(raw))
		if ok && limit < physical {
			return limit
		}
		return physical
	}
	return physical
}

// parseMemoryLimit parses a cgroup memory limit file. ok is false when the
// memory is unrestricted.
func parseMemoryLimit(raw string) (limit uint64, ok bool) {
	value := strings.TrimSpace(raw)
	if value == "max" {
		return 0, false
	}

	limit, err := strconv.ParseUint(value, 10, 64)
	if err != nil || limit == 0 || limit >= unrestrictedMemoryLimit {
		return 0, false
	}
	return limit, true
}
