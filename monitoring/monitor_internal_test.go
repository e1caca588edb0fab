package monitoring

import (
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cosim/rtl"
	"github.com/sarchlab/cosim/sim/timing"
)

type sampleComponent struct {
	name  string
	Level uint32
}

func (c *sampleComponent) Name() string { return c.name }

type tickingSampleComponent struct {
	sampleComponent
	ticked int
}

func (c *tickingSampleComponent) TickLater() { c.ticked++ }

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		engine *timing.SerialEngine
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		m.router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		m = NewMonitor()
		m.RegisterEngine(engine)
	})

	It("should fall back to a random port for reserved ports", func() {
		m.WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
	})

	It("should report the virtual time", func() {
		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`{"now":0.0000000000}`))
	})

	It("should refuse engine calls without an engine", func() {
		m = NewMonitor()

		rec := get("/api/pause")

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should pause and continue the engine", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
	})

	It("should list components", func() {
		m.RegisterComponent(&sampleComponent{name: "Bridge"})
		m.RegisterComponent(&sampleComponent{name: "Line"})

		rec := get("/api/list_components")

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"Bridge", "Line"}))
	})

	It("should return 404 for unknown components", func() {
		rec := get("/api/component/Nobody")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should serialize a component", func() {
		m.RegisterComponent(&sampleComponent{name: "Bridge", Level: 3})

		rec := get("/api/component/Bridge")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should serialize a bridge and its synchronizer", func() {
		near, far := net.Pipe()
		defer far.Close()

		bridge := rtl.MakeBuilder().
			WithEngine(engine).
			WithLogger(log.New(io.Discard, "", 0)).
			WithShutdownHandler(func() {}).
			Build("Bridge", near)
		defer bridge.Shutdown()

		m.RegisterComponent(bridge)
		m.RegisterComponent(bridge.Synchronizer())

		for _, name := range []string{"Bridge", "Bridge.Synchronizer"} {
			rec := get("/api/component/" + name)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.Len()).To(BeNumerically(">", 0))
		}
	})

	It("should tick components that can tick", func() {
		ticking := &tickingSampleComponent{
			sampleComponent: sampleComponent{name: "Sync"},
		}
		m.RegisterComponent(ticking)
		m.RegisterComponent(&sampleComponent{name: "Bridge"})

		Expect(get("/api/tick/Sync").Code).To(Equal(http.StatusOK))
		Expect(get("/api/tick/Bridge").Code).
			To(Equal(http.StatusMethodNotAllowed))
		Expect(ticking.ticked).To(Equal(1))
	})

	It("should reject a malformed field request", func() {
		rec := get("/api/field/notjson")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("script", 4)
		bar.IncrementInProgress(2)
		bar.MoveInProgressToFinished(1)

		var bars []progressBarRsp
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("script"))
		Expect(bars[0].Finished).To(Equal(uint64(1)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)

		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should report resource usage", func() {
		rec := get("/api/resource")

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve the status page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should start and stop the server", func() {
		Expect(m.URL()).To(BeEmpty())
		Expect(m.OpenBrowser()).NotTo(Succeed())

		Expect(m.StartServer()).To(Succeed())
		Expect(m.URL()).To(HavePrefix("http://localhost:"))

		rsp, err := http.Get(m.URL() + "/api/now")
		Expect(err).NotTo(HaveOccurred())
		rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		Expect(m.StopServer()).To(Succeed())
	})
})
