// Package monitoring serves the live state of caches over HTTP while a trace
// replays.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/avdcache/mem/cache"
	"github.com/sarchlab/avdcache/mem/cache/hierarchy"
	"github.com/sarchlab/avdcache/monitoring/web"
)

// Monitor can turn a simulation into a server that reports the state of its
// caches.
type Monitor struct {
	lock        sync.Locker
	caches      []*cache.Cache
	hierarchies []*hierarchy.TwoLevel
	aggregators map[string]*hierarchy.Aggregator
	portNumber  int
	openBrowser bool
	profileTime time.Duration

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		lock:        &sync.Mutex{},
		aggregators: make(map[string]*hierarchy.Aggregator),
		profileTime: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLocker sets the lock that the monitor holds while reading caches. The
// goroutine that accesses the caches must hold the same lock.
func (m *Monitor) WithLocker(l sync.Locker) *Monitor {
	m.lock = l
	return m
}

// WithOpenBrowser makes StartServer open the dashboard in a browser.
func (m *Monitor) WithOpenBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterCache registers a cache to be monitored.
func (m *Monitor) RegisterCache(c *cache.Cache) {
	m.caches = append(m.caches, c)
}

// RegisterHierarchy registers a hierarchy and both of its levels. The
// aggregator, if not nil, provides the statistics of the hierarchy.
func (m *Monitor) RegisterHierarchy(
	h *hierarchy.TwoLevel,
	agg *hierarchy.Aggregator,
) {
	m.hierarchies = append(m.hierarchies, h)
	m.RegisterCache(h.L1())
	m.RegisterCache(h.L2())

	if agg != nil {
		m.aggregators[h.Name()] = agg
	}
}

// CreateProgressBar creates a new progress bar. A total of 0 means the
// total is unknown.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/caches", m.listCaches)
	r.HandleFunc("/api/cache/{name}", m.cacheDetails)
	r.HandleFunc("/api/describe/{name}", m.describe)
	r.HandleFunc("/api/stats/{name}", m.stats)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := http.Serve(listener, m.router())
		dieOnErr(err)
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}

	return url
}

func (m *Monitor) names() []string {
	names := make([]string, 0, len(m.hierarchies)+len(m.caches))

	for _, h := range m.hierarchies {
		names = append(names, h.Name())
	}

	for _, c := range m.caches {
		names = append(names, c.Name())
	}

	sort.Strings(names)

	return names
}

func (m *Monitor) listCaches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.names())
}

func (m *Monitor) findCache(name string) *cache.Cache {
	for _, c := range m.caches {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

func (m *Monitor) findHierarchy(name string) *hierarchy.TwoLevel {
	for _, h := range m.hierarchies {
		if h.Name() == name {
			return h
		}
	}

	return nil
}

func notFound(w http.ResponseWriter, name string) {
	w.WriteHeader(http.StatusNotFound)
	_, err := fmt.Fprintf(w, "Cache %s not found", name)
	dieOnErr(err)
}

func (m *Monitor) cacheDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	c := m.findCache(name)
	if c == nil {
		notFound(w, name)
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(c)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) describe(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var text string

	m.lock.Lock()
	if c := m.findCache(name); c != nil {
		text = c.Describe()
	} else if h := m.findHierarchy(name); h != nil {
		text = h.Describe()
	}
	m.lock.Unlock()

	if text == "" {
		notFound(w, name)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := w.Write([]byte(text))
	dieOnErr(err)
}

type statsRsp struct {
	cache.Statistics
	Misses       uint64  `json:"misses"`
	Accesses     uint64  `json:"accesses"`
	MissRatio    float64 `json:"miss_ratio"`
	HasMissRatio bool    `json:"has_miss_ratio"`
}

func newStatsRsp(s cache.Statistics) statsRsp {
	ratio, ok := s.MissRatio()

	return statsRsp{
		Statistics:   s,
		Misses:       s.Misses(),
		Accesses:     s.Accesses(),
		MissRatio:    ratio,
		HasMissRatio: ok,
	}
}

func (m *Monitor) stats(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var (
		s     cache.Statistics
		found bool
	)

	m.lock.Lock()
	if c := m.findCache(name); c != nil {
		s, found = c.Stats(), true
	} else if agg, ok := m.aggregators[name]; ok {
		s, found = agg.Stats(), true
	}
	m.lock.Unlock()

	if !found {
		notFound(w, name)
		return
	}

	writeJSON(w, newStatsRsp(s))
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	rsp := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		b.Lock()
		rsp = append(rsp, progressRsp{
			ID:        b.ID,
			Name:      b.Name,
			StartTime: b.StartTime,
			Total:     b.Total,
			Finished:  b.Finished,
		})
		b.Unlock()
	}

	writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileTime)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
