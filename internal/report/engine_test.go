package report

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Engine", func() {
	var (
		engine  *Engine
		initial DailyReport
	)

	BeforeEach(func() {
		engine = NewEngine()
		initial = sampleReport()
		engine.Init(initial)
	})

	current := func() DailyReport {
		r, ok := engine.State()
		Expect(ok).To(BeTrue())
		return r
	}

	Describe("Init", func() {
		It("should expose the report verbatim", func() {
			Expect(current()).To(Equal(initial))
		})

		It("should not be undoable", func() {
			Expect(engine.CanUndo()).To(BeFalse())
			Expect(engine.CanRedo()).To(BeFalse())
		})

		When("called again after edits", func() {
			BeforeEach(func() {
				Expect(engine.Update(Changes{StoreName: ptr("Other")})).To(Succeed())
				Expect(engine.Update(Changes{StoreName: ptr("Third")})).To(Succeed())
				engine.Undo()
				engine.Init(initial)
			})

			It("should clear both stacks", func() {
				Expect(engine.CanUndo()).To(BeFalse())
				Expect(engine.CanRedo()).To(BeFalse())
				Expect(current().StoreName).To(Equal("Test Store"))
			})
		})
	})

	Describe("Update", func() {
		When("no report was loaded", func() {
			It("returns ErrNoReport", func() {
				empty := NewEngine()
				Expect(empty.Update(Changes{StoreName: ptr("x")})).To(MatchError(ErrNoReport))
				_, ok := empty.State()
				Expect(ok).To(BeFalse())
			})
		})

		When("items change", func() {
			BeforeEach(func() {
				items := []SalesItem{item(2, "iPhone 15", "3500"), item(1, "Case", "100")}
				Expect(engine.Update(Changes{Items: &items})).To(Succeed())
			})

			It("should recompute totals from the new items", func() {
				Expect(current().Totals.Gross.String()).To(Equal("7100"))
				Expect(current().Totals.Net.String()).To(Equal("7100"))
			})

			It("should rebuild the share message", func() {
				Expect(current().ShareMessage).To(ContainSubstring("1. 2 iPhone 15 7000 AED"))
				Expect(current().ShareMessage).To(HaveSuffix("Total: 7100 AED"))
			})

			It("should make the edit undoable", func() {
				Expect(engine.CanUndo()).To(BeTrue())
			})

			It("should never show stale totals after a second item change", func() {
				items := []SalesItem{item(1, "Case", "100")}
				Expect(engine.Update(Changes{Items: &items})).To(Succeed())
				Expect(current().Totals.Gross.String()).To(Equal("100"))
			})
		})

		When("only discounts change", func() {
			BeforeEach(func() {
				items := []SalesItem{item(1, "Case", "100")}
				Expect(engine.Update(Changes{Items: &items})).To(Succeed())
				Expect(engine.Update(Changes{Discounts: ptr(dec("150"))})).To(Succeed())
			})

			It("should allow a negative net", func() {
				Expect(current().Totals.Net.String()).To(Equal("-50"))
				Expect(current().ShareMessage).To(HaveSuffix("Total: -50 AED"))
			})
		})

		When("only a header field changes", func() {
			BeforeEach(func() {
				Expect(engine.Update(Changes{StoreName: ptr("Mall Branch")})).To(Succeed())
			})

			It("should rebuild the share message from the merged report", func() {
				Expect(current().ShareMessage).To(HavePrefix("Mall Branch\n"))
			})

			It("should keep the report id", func() {
				Expect(current().ID).To(Equal("report-1"))
			})
		})

		When("the caller mutates slices it passed in or got back", func() {
			It("should not leak into the committed state", func() {
				items := []SalesItem{item(1, "Case", "100")}
				Expect(engine.Update(Changes{Items: &items})).To(Succeed())
				items[0].ProductName = "Changed"

				snapshot := current()
				snapshot.Items[0].ProductName = "Also changed"

				Expect(current().Items[0].ProductName).To(Equal("Case"))
			})
		})
	})

	Describe("Undo and Redo", func() {
		When("history is empty", func() {
			It("should leave everything unchanged", func() {
				Expect(engine.Undo()).To(BeFalse())
				Expect(engine.Redo()).To(BeFalse())
				Expect(current()).To(Equal(initial))
				Expect(engine.CanUndo()).To(BeFalse())
				Expect(engine.CanRedo()).To(BeFalse())
			})
		})

		When("n updates are undone n times", func() {
			It("should return to the initial state", func() {
				names := []string{"A", "B", "C", "D"}
				for _, name := range names {
					Expect(engine.Update(Changes{StoreName: ptr(name)})).To(Succeed())
				}
				for range names {
					Expect(engine.Undo()).To(BeTrue())
				}
				Expect(current()).To(Equal(initial))
				Expect(engine.CanUndo()).To(BeFalse())
			})
		})

		When("undo is followed by redo", func() {
			var afterUpdate DailyReport

			BeforeEach(func() {
				items := []SalesItem{item(3, "Charger", "45.5")}
				Expect(engine.Update(Changes{Items: &items})).To(Succeed())
				afterUpdate = current()
			})

			It("should restore the updated state exactly", func() {
				engine.Undo()
				Expect(current()).To(Equal(initial))
				engine.Redo()
				Expect(current()).To(Equal(afterUpdate))
			})

			It("should restore the pre-undo state when redo is undone", func() {
				engine.Undo()
				beforeRedo := current()
				engine.Redo()
				engine.Undo()
				Expect(current()).To(Equal(beforeRedo))
			})
		})

		When("a new edit follows an undo", func() {
			It("should discard the redo branch", func() {
				Expect(engine.Update(Changes{StoreName: ptr("A")})).To(Succeed())
				Expect(engine.Update(Changes{StoreName: ptr("B")})).To(Succeed())
				engine.Undo()
				Expect(engine.CanRedo()).To(BeTrue())
				Expect(engine.Update(Changes{StoreName: ptr("C")})).To(Succeed())
				Expect(engine.CanRedo()).To(BeFalse())
				Expect(engine.Redo()).To(BeFalse())
				Expect(current().StoreName).To(Equal("C"))
			})
		})
	})

	Describe("WithHistoryLimit", func() {
		BeforeEach(func() {
			engine = NewEngine(WithHistoryLimit(2))
			engine.Init(initial)
			for _, name := range []string{"A", "B", "C"} {
				Expect(engine.Update(Changes{StoreName: ptr(name)})).To(Succeed())
			}
		})

		It("should drop the oldest steps", func() {
			Expect(engine.Undo()).To(BeTrue())
			Expect(engine.Undo()).To(BeTrue())
			Expect(engine.Undo()).To(BeFalse())
			Expect(current().StoreName).To(Equal("A"))
		})

		It("should still redo everything that was undone", func() {
			engine.Undo()
			engine.Undo()
			Expect(engine.Redo()).To(BeTrue())
			Expect(engine.Redo()).To(BeTrue())
			Expect(current().StoreName).To(Equal("C"))
		})
	})
})
