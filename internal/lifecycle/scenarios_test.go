package lifecycle

import (
	"context"
	"syscall"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/imamik/kubevirt-actions-runner/internal/phase"
	"github.com/imamik/kubevirt-actions-runner/internal/runnerinfo"
	"github.com/imamik/kubevirt-actions-runner/internal/vmi"
)

var _ = Describe("Runner", func() {
	const (
		name     = "runner-abc"
		template = "ubuntu-runner"
	)

	var (
		ctx     context.Context
		cancel  context.CancelFunc
		s       *scenario
		runner  *Runner
		signals *fakeSignals
	)

	newRunner := func() {
		runner = New(s.client, Options{
			Name:     name,
			Template: template,
			Info:     runnerinfo.JIT{JITConfig: "abc"},
		})
		signals = installFakeSignals(runner)
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(func() { cancel() })
	})

	Context("with no leftover instance", func() {
		BeforeEach(func() {
			s = newScenario(templateInNamespace(template))
			newRunner()
		})

		It("creates the instance, waits for it to succeed and deletes it", func() {
			done := s.start(ctx, runner)
			s.waitForWatch()

			created, err := s.instances().get(ctx, name)
			Expect(err).NotTo(HaveOccurred())
			Expect(vmi.Volumes(created)).To(Equal([]string{"data", "runner-info"}))
			Expect(created.GetAnnotations()).To(HaveKeyWithValue(vmi.RunnerInfoAnnotation, `{"jitconfig":"abc"}`))

			s.instances().setPhase(ctx, name, "Running")
			s.instances().setPhase(ctx, name, "Succeeded")

			var res runResult
			Eventually(done, "5s").Should(Receive(&res))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.outcome).To(Equal(phase.OutcomeSucceeded))

			_, err = s.instances().get(ctx, name)
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
			Expect(s.verbs("virtualmachineinstances")).To(ContainElement("delete"))
		})

		It("reports a failed instance as abnormal after cleaning up", func() {
			done := s.start(ctx, runner)
			s.waitForWatch()

			s.instances().setPhase(ctx, name, "Failed")

			var res runResult
			Eventually(done, "5s").Should(Receive(&res))
			Expect(res.outcome).To(Equal(phase.OutcomeFailed))
			Expect(IsAbnormalOutcome(res.err)).To(BeTrue())

			_, err := s.instances().get(ctx, name)
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})

		It("does not delete an instance that something else deleted", func() {
			done := s.start(ctx, runner)
			s.waitForWatch()

			s.instances().setPhase(ctx, name, "Running")
			s.instances().delete(ctx, name)

			var res runResult
			Eventually(done, "5s").Should(Receive(&res))
			Expect(res.outcome).To(Equal(phase.OutcomeDeleted))
			Expect(IsAbnormalOutcome(res.err)).To(BeTrue())

			// The only delete is the external one.
			deletes := 0
			for _, verb := range s.verbs("virtualmachineinstances") {
				if verb == "delete" {
					deletes++
				}
			}
			Expect(deletes).To(Equal(1))
		})

		It("stops watching on SIGTERM and still deletes the instance", func() {
			done := s.start(ctx, runner)
			s.waitForWatch()

			s.instances().setPhase(ctx, name, "Running")
			signals.send(syscall.SIGTERM)

			var res runResult
			Eventually(done, "5s").Should(Receive(&res))
			Expect(res.outcome).To(Equal(phase.OutcomeInterrupted))
			Expect(IsAbnormalOutcome(res.err)).To(BeTrue())

			_, err := s.instances().get(ctx, name)
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})

		It("renders the instance without creating anything", func() {
			obj, err := runner.Render(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(obj.GetName()).To(Equal(name))
			Expect(obj.GetKind()).To(Equal("VirtualMachineInstance"))

			Expect(s.verbs("virtualmachineinstances")).To(BeEmpty())
		})
	})

	Context("with a leftover instance from an earlier run", func() {
		BeforeEach(func() {
			s = newScenario(templateInNamespace(template), instanceInNamespace(name, "Running"))
			newRunner()
		})

		It("deletes the leftover instance before creating a new one", func() {
			done := s.start(ctx, runner)
			s.waitForWatch()

			created, err := s.instances().get(ctx, name)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(created.GetUID())).NotTo(Equal("stale-uid"))
			Expect(created.GetAnnotations()).To(HaveKey(vmi.RunnerInfoAnnotation))

			verbs := s.verbs("virtualmachineinstances")
			Expect(verbs).To(ContainElement("delete"))
			Expect(verbs).To(ContainElement("create"))

			s.instances().setPhase(ctx, name, "Succeeded")

			var res runResult
			Eventually(done, "5s").Should(Receive(&res))
			Expect(res.err).NotTo(HaveOccurred())
		})
	})

	Context("with a missing template", func() {
		BeforeEach(func() {
			s = newScenario()
			newRunner()
		})

		It("fails before creating anything", func() {
			outcome, err := runner.Run(ctx)
			Expect(err).To(HaveOccurred())
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
			Expect(outcome).To(Equal(phase.Outcome(0)))
			Expect(s.verbs("virtualmachineinstances")).NotTo(ContainElement("create"))
		})
	})
})
