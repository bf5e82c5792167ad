package workflow_test

import (
	"github.com/frahmantamala/docflow/internal/authz"
	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	"github.com/frahmantamala/docflow/internal/workflow"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Transition graph", func() {
	statuses := []documentDatamodel.Status{
		documentDatamodel.StatusDraft,
		documentDatamodel.StatusReview,
		documentDatamodel.StatusPublished,
		documentDatamodel.StatusArchived,
		documentDatamodel.StatusDisposed,
	}

	It("has the expected out-degree per status", func() {
		Expect(workflow.Outgoing(documentDatamodel.StatusDraft)).To(HaveLen(2))
		Expect(workflow.Outgoing(documentDatamodel.StatusReview)).To(HaveLen(3))
		Expect(workflow.Outgoing(documentDatamodel.StatusPublished)).To(HaveLen(2))
		Expect(workflow.Outgoing(documentDatamodel.StatusArchived)).To(HaveLen(2))
		Expect(workflow.Outgoing(documentDatamodel.StatusDisposed)).To(BeEmpty())
	})

	It("names a transition action for every edge and only for edges", func() {
		for _, from := range statuses {
			for _, to := range statuses {
				_, adjacent := workflow.Lookup(from, to)
				_, named := authz.TransitionAction(from, to)
				Expect(named).To(Equal(adjacent), "%s -> %s", from, to)
			}
		}
	})

	It("never allows a self loop", func() {
		for _, s := range statuses {
			_, ok := workflow.Lookup(s, s)
			Expect(ok).To(BeFalse())
		}
	})

	It("requires decisions only when leaving review for published or draft", func() {
		publish, _ := workflow.Lookup(documentDatamodel.StatusReview, documentDatamodel.StatusPublished)
		Expect(publish.Decisions).To(HaveLen(1))
		reject, _ := workflow.Lookup(documentDatamodel.StatusReview, documentDatamodel.StatusDraft)
		Expect(reject.Decisions).To(HaveLen(2))
		submit, _ := workflow.Lookup(documentDatamodel.StatusDraft, documentDatamodel.StatusReview)
		Expect(submit.Decisions).To(BeEmpty())
		Expect(submit.RequiresComment).To(BeFalse())
	})
})
