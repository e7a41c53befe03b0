package ocr

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeWorker records how it is used
type fakeWorker struct {
	text       string
	delay      time.Duration
	panicWith  any
	active     atomic.Int32
	maxActive  atomic.Int32
	calls      atomic.Int32
	terminated atomic.Int32
}

func (w *fakeWorker) Recognize(ctx context.Context, image []byte, contentType string) (string, error) {
	w.calls.Add(1)
	n := w.active.Add(1)
	defer w.active.Add(-1)
	for {
		m := w.maxActive.Load()
		if n <= m || w.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if w.panicWith != nil {
		panic(w.panicWith)
	}
	time.Sleep(w.delay)
	return w.text, nil
}

func (w *fakeWorker) Terminate() error {
	w.terminated.Add(1)
	return nil
}

// fakeLoader hands out one worker and can be gated or made to fail
type fakeLoader struct {
	worker *fakeWorker
	gate   chan struct{}
	fail   atomic.Bool
	loads  atomic.Int32
	cfg    Config
}

func (l *fakeLoader) Load(ctx context.Context, cfg Config) (Worker, error) {
	l.loads.Add(1)
	l.cfg = cfg
	if l.gate != nil {
		<-l.gate
	}
	if l.fail.Load() {
		return nil, errors.New("language data missing")
	}
	return l.worker, nil
}

func recognizeConcurrently(engine *Engine, n int) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = engine.Recognize(context.Background(), []byte("img"), "image/png")
		}()
	}
	wg.Wait()
	return errs
}

var _ = Describe("Engine", func() {
	var (
		worker *fakeWorker
		loader *fakeLoader
		engine *Engine
	)

	BeforeEach(func() {
		worker = &fakeWorker{text: "STARBUCKS\nTotal: $4.95"}
		loader = &fakeLoader{worker: worker}
		engine = NewEngine(Config{Language: "eng", Whitelist: "ABC"}, loader.Load)
	})

	It("should not load anything up front", func() {
		Expect(loader.loads.Load()).To(BeZero())
	})

	It("should load the worker with the configuration", func() {
		text, err := engine.Recognize(context.Background(), []byte("img"), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal(worker.text))
		Expect(loader.cfg).To(Equal(Config{Language: "eng", Whitelist: "ABC"}))
	})

	It("should load once for concurrent callers", func() {
		loader.gate = make(chan struct{})
		done := make(chan []error)
		go func() {
			done <- recognizeConcurrently(engine, 10)
		}()

		Eventually(loader.loads.Load).Should(Equal(int32(1)))
		close(loader.gate)

		var errs []error
		Eventually(done).Should(Receive(&errs))
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(loader.loads.Load()).To(Equal(int32(1)))
		Expect(worker.calls.Load()).To(Equal(int32(10)))
	})

	It("should reject every waiting caller when loading fails and retry later", func() {
		loader.fail.Store(true)
		loader.gate = make(chan struct{})
		done := make(chan []error)
		go func() {
			done <- recognizeConcurrently(engine, 5)
		}()

		Eventually(loader.loads.Load).Should(BeNumerically(">=", 1))
		close(loader.gate)

		var errs []error
		Eventually(done).Should(Receive(&errs))
		for _, err := range errs {
			Expect(err).To(MatchError(ContainSubstring("language data missing")))
		}

		loader.fail.Store(false)
		_, err := engine.Recognize(context.Background(), []byte("img"), "image/png")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should serialize recognition", func() {
		worker.delay = 5 * time.Millisecond
		errs := recognizeConcurrently(engine, 8)
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(worker.maxActive.Load()).To(Equal(int32(1)))
	})

	It("should turn a worker panic into an error and stay usable", func() {
		worker.panicWith = "segfault in native code"
		_, err := engine.Recognize(context.Background(), []byte("img"), "image/png")
		Expect(err).To(MatchError(ContainSubstring("segfault")))

		worker.panicWith = nil
		_, err = engine.Recognize(context.Background(), []byte("img"), "image/png")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should turn a loader panic into an error", func() {
		engine = NewEngine(Config{}, func(context.Context, Config) (Worker, error) {
			panic("bad install")
		})
		_, err := engine.Recognize(context.Background(), []byte("img"), "image/png")
		Expect(err).To(MatchError(ContainSubstring("bad install")))
	})

	Describe("Close", func() {
		It("should terminate a loaded worker once", func() {
			_, err := engine.Recognize(context.Background(), []byte("img"), "image/png")
			Expect(err).NotTo(HaveOccurred())

			Expect(engine.Close()).To(Succeed())
			Expect(engine.Close()).To(Succeed())
			Expect(worker.terminated.Load()).To(Equal(int32(1)))
		})

		It("should refuse work afterwards", func() {
			Expect(engine.Close()).To(Succeed())
			_, err := engine.Recognize(context.Background(), []byte("img"), "image/png")
			Expect(err).To(MatchError(ErrEngineClosed))
			Expect(loader.loads.Load()).To(BeZero())
		})

		It("should terminate a worker that finishes loading after close", func() {
			loader.gate = make(chan struct{})
			done := make(chan error)
			go func() {
				_, err := engine.Recognize(context.Background(), []byte("img"), "image/png")
				done <- err
			}()

			Eventually(loader.loads.Load).Should(Equal(int32(1)))
			Expect(engine.Close()).To(Succeed())
			close(loader.gate)

			Eventually(done).Should(Receive(MatchError(ErrEngineClosed)))
			Expect(worker.terminated.Load()).To(Equal(int32(1)))
		})
	})
})

// fakeRecognizer returns a canned transcript or error
type fakeRecognizer struct {
	text string
	err  error
}

func (f *fakeRecognizer) Recognize(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

var _ = Describe("Process", func() {
	It("should extract from a successful pass", func() {
		result := Process(context.Background(), &fakeRecognizer{text: "Total: $23.47\nSTARBUCKS"}, []byte("img"), "image/jpeg")
		Expect(result.Success).To(BeTrue())
		Expect(result.Error).To(BeEmpty())
		Expect(result.Text).To(ContainSubstring("STARBUCKS"))
		Expect(result.Purchase).NotTo(BeNil())
		Expect(result.Purchase.MerchantName).To(Equal("STARBUCKS"))
	})

	It("should not fabricate data from a failed pass", func() {
		result := Process(context.Background(), &fakeRecognizer{err: errors.New("engine crashed")}, []byte("img"), "image/jpeg")
		Expect(result.Success).To(BeFalse())
		Expect(result.Error).To(Equal("engine crashed"))
		Expect(result.Purchase).To(BeNil())
		Expect(result.Text).To(BeEmpty())
	})
})
