package system

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/f1blog/internal/domain"
)

// SystemStats is what the dashboard shows about the host and the blog
type SystemStats struct {
	NodeName  string           `json:"node_name"`
	CPU       CPUStats         `json:"cpu"`
	Memory    MemoryStats      `json:"memory"`
	Disk      DiskStats        `json:"disk"`
	Content   domain.SiteStats `json:"content"`
	Database  DatabaseStats    `json:"database"`
	Timestamp time.Time        `json:"timestamp"`
}

// CPUStats represents CPU usage statistics
type CPUStats struct {
	UsagePercent float64 `json:"usage_percent"`
	Cores        int     `json:"cores"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Total        uint64  `json:"total_bytes"`
	Used         uint64  `json:"used_bytes"`
	Available    uint64  `json:"available_bytes"`
	UsagePercent float64 `json:"usage_percent"`
}

// DiskStats represents disk usage of the volume holding the database
type DiskStats struct {
	Total        uint64  `json:"total_bytes"`
	Used         uint64  `json:"used_bytes"`
	Free         uint64  `json:"free_bytes"`
	UsagePercent float64 `json:"usage_percent"`
	Path         string  `json:"path"`
}

// DatabaseStats describes the database file
type DatabaseStats struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// HostProbe reads host resource usage. The default uses gopsutil.
type HostProbe interface {
	CPU() (CPUStats, error)
	Memory() (MemoryStats, error)
	Disk(path string) (DiskStats, error)
}

// ContentCounter reports blog totals
type ContentCounter interface {
	GetSiteStats(ctx context.Context) (domain.SiteStats, error)
}

// Collector collects host and content statistics
type Collector struct {
	dbPath  string
	content ContentCounter
	host    HostProbe
	logger  *slog.Logger
}

// NewCollector creates a collector over the database at dbPath
func NewCollector(dbPath string, content ContentCounter, logger *slog.Logger) *Collector {
	return NewCollectorWithProbe(dbPath, content, gopsutilProbe{}, logger)
}

// NewCollectorWithProbe creates a collector with a custom host probe
func NewCollectorWithProbe(dbPath string, content ContentCounter, host HostProbe, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{dbPath: dbPath, content: content, host: host, logger: logger}
}

// GetSystemStats collects everything in parallel. A failing probe leaves its
// section zeroed; only a content failure is returned as an error.
func (c *Collector) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	c.logger.DebugContext(ctx, "collecting system statistics")

	var (
		cpuStats   CPUStats
		memStats   MemoryStats
		diskStats  DiskStats
		content    domain.SiteStats
		contentErr error
	)
	dataDir := filepath.Dir(c.dbPath)

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		s, err := c.host.CPU()
		if err != nil {
			c.logger.Warn("failed to get CPU stats", "error", err)
		}
		cpuStats = s
	}()

	go func() {
		defer wg.Done()
		s, err := c.host.Memory()
		if err != nil {
			c.logger.Warn("failed to get memory stats", "error", err)
		}
		memStats = s
	}()

	go func() {
		defer wg.Done()
		s, err := c.host.Disk(dataDir)
		if err != nil {
			c.logger.Warn("failed to get disk stats", "path", dataDir, "error", err)
			s = DiskStats{Path: dataDir}
		}
		diskStats = s
	}()

	go func() {
		defer wg.Done()
		content, contentErr = c.content.GetSiteStats(ctx)
	}()

	wg.Wait()

	if contentErr != nil {
		return nil, contentErr
	}

	stats := &SystemStats{
		NodeName:  nodeName(),
		CPU:       cpuStats,
		Memory:    memStats,
		Disk:      diskStats,
		Content:   content,
		Database:  c.databaseStats(),
		Timestamp: time.Now(),
	}

	c.logger.DebugContext(ctx, "system statistics collected",
		"cpu_usage", cpuStats.UsagePercent,
		"memory_usage", memStats.UsagePercent,
		"disk_usage", diskStats.UsagePercent,
		"total_posts", content.TotalPosts)

	return stats, nil
}

func (c *Collector) databaseStats() DatabaseStats {
	st := DatabaseStats{Path: c.dbPath}
	if info, err := os.Stat(c.dbPath); err == nil {
		st.SizeBytes = info.Size()
	}
	return st
}

func nodeName() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

type gopsutilProbe struct{}

func (gopsutilProbe) CPU() (CPUStats, error) {
	cores, err := cpu.Counts(true)
	if err != nil {
		cores = 1
	}

	// Zero interval returns usage since the previous call without blocking
	percentages, err := cpu.Percent(0, false)
	if err != nil {
		return CPUStats{Cores: cores}, err
	}

	usage := 0.0
	if len(percentages) > 0 {
		usage = percentages[0]
	}
	return CPUStats{UsagePercent: usage, Cores: cores}, nil
}

func (gopsutilProbe) Memory() (MemoryStats, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemoryStats{}, err
	}
	return MemoryStats{
		Total:        vm.Total,
		Used:         vm.Used,
		Available:    vm.Available,
		UsagePercent: vm.UsedPercent,
	}, nil
}

func (gopsutilProbe) Disk(path string) (DiskStats, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return DiskStats{Path: path}, err
	}
	return DiskStats{
		Total:        usage.Total,
		Used:         usage.Used,
		Free:         usage.Free,
		UsagePercent: usage.UsedPercent,
		Path:         path,
	}, nil
}
