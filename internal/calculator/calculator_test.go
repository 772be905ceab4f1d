package calculator_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/calculator"
	"github.com/petrichorcode/pysic/internal/compute"
	"github.com/petrichorcode/pysic/internal/core"
	"github.com/petrichorcode/pysic/internal/engine/enginetest"
	"github.com/petrichorcode/pysic/internal/interaction"
	"github.com/petrichorcode/pysic/internal/relax"
)

func siliconOxide() *atoms.Structure {
	return &atoms.Structure{
		Cell: atoms.Orthorhombic(10, 10, 10),
		PBC:  [3]bool{true, true, true},
		Atoms: []atoms.Atom{
			{Symbol: "Si", Mass: 28, Position: atoms.Vec3{1, 1, 1}},
			{Symbol: "O", Mass: 16, Position: atoms.Vec3{2.5, 1, 1}},
		},
	}
}

func spring(cutoff float64, species ...string) interaction.Potential {
	return interaction.Potential{
		Type:    compute.TypeSpring,
		Targets: interaction.BySpecies(species),
		Cutoff:  cutoff,
		Params:  []float64{1, 1.5},
	}
}

var _ = Describe("Calculator", func() {
	var (
		rec  *enginetest.Recorder
		m    *calculator.Mirror
		calc *calculator.Calculator
		st   *atoms.Structure
	)

	BeforeEach(func() {
		rec = enginetest.New()
		m = calculator.NewMirror(rec)
		calc = calculator.New(m)
		st = siliconOxide()
		calc.SetStructure(st)
		Expect(calc.SetPotentials(interaction.NewSet(spring(3, "Si", "O")))).To(Succeed())
	})

	Describe("full initialization", func() {
		It("pushes everything in dependency order", func() {
			_, err := calc.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Calls()).To(Equal([]string{
				enginetest.CreateAtoms,
				enginetest.DistributeWorkers,
				enginetest.CreateCell,
				enginetest.AllocatePotentials,
				enginetest.AddPotential,
				enginetest.AddPotential,
				enginetest.AllocateBondOrderFactors,
				enginetest.AllocateBondOrderStorage,
				enginetest.SetNeighborList,
				enginetest.SetNeighborList,
				enginetest.BuildPotentialLists,
				enginetest.Energy,
			}))
			Expect(rec.Storage).To(Equal([3]int{2, 1, 0}))
			Expect(rec.NeighborMap()).To(Equal(calc.NeighborList().Map()))
		})

		It("leaves nothing to push on a second synchronization", func() {
			Expect(calc.Sync()).To(Succeed())
			pushes := rec.Pushes()
			Expect(pushes).To(BeNumerically(">", 0))
			Expect(calc.Sync()).To(Succeed())
			Expect(rec.Pushes()).To(Equal(pushes))
		})

		It("is repeated for every synchronization when forced", func() {
			calc.ForceFullInitialization(true)
			Expect(calc.FullInitializationForced()).To(BeTrue())
			Expect(calc.Sync()).To(Succeed())
			Expect(calc.Sync()).To(Succeed())
			Expect(rec.Count(enginetest.CreateAtoms)).To(Equal(2))
		})

		It("registers each distinct ordering of a target tuple once", func() {
			tests := []struct {
				species []string
				want    int
			}{
				{[]string{"Si", "O"}, 2},
				{[]string{"Si", "Si"}, 1},
				{[]string{"Si", "O", "H"}, 6},
				{[]string{"Si", "O", "O"}, 3},
			}
			for _, tt := range tests {
				rec.Reset()
				Expect(calc.SetPotentials(interaction.NewSet(interaction.Potential{
					Type: compute.TypeSpring, Targets: interaction.BySpecies(tt.species), Cutoff: 3, Params: []float64{1, 1},
				}))).To(Succeed())
				Expect(calc.Sync()).To(Succeed())
				Expect(rec.Count(enginetest.AddPotential)).To(Equal(tt.want), "species %v", tt.species)
			}
			Expect(rec.Potentials[0].Original.Symbols).To(Equal([]string{"Si", "O", "O"}))
		})

		It("pushes bond-order factors with the group of their potential", func() {
			p := spring(3, "Si", "O")
			p.Coordinator = &interaction.Coordinator{BondOrders: []interaction.BondOrder{{
				Type: "coordination", Species: [][]string{{"Si", "O"}}, Cutoff: 2, Params: [][]float64{{1, 2}, {3}},
			}}}
			Expect(calc.SetPotentials(interaction.NewSet(spring(2, "O", "O"), p))).To(Succeed())
			Expect(calc.Sync()).To(Succeed())

			Expect(rec.BondOrders).To(HaveLen(2))
			Expect(rec.BondOrders[0].Group).To(Equal(1))
			Expect(rec.BondOrders[0].ParamCounts).To(Equal([]int{2, 1}))
			Expect(rec.BondOrders[1].Symbols).To(Equal([]string{"O", "Si"}))
			Expect(rec.Potentials[0].Group).To(Equal(-1))
			Expect(rec.Potentials[1].Group).To(Equal(1))
			Expect(rec.Storage).To(Equal([3]int{2, 2, 1}))
		})
	})

	Describe("incremental synchronization", func() {
		BeforeEach(func() {
			_, err := calc.Energy()
			Expect(err).NotTo(HaveOccurred())
			rec.Reset()
		})

		move := func(dx float64) {
			next := calc.Structure()
			next.Atoms[1].Position[0] += dx
			calc.SetStructure(next)
		}

		It("returns cached results without computing", func() {
			_, err := calc.Forces()
			Expect(err).NotTo(HaveOccurred())
			_, err = calc.Forces()
			Expect(err).NotTo(HaveOccurred())
			_, err = calc.Stress()
			Expect(err).NotTo(HaveOccurred())
			_, err = calc.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Count(enginetest.Forces)).To(Equal(1))
			Expect(rec.Count(enginetest.Energy)).To(Equal(0))
		})

		It("keeps results for an identical structure", func() {
			calc.SetStructure(siliconOxide())
			Expect(calc.CalculationRequired(calculator.QuantityEnergy)).To(BeFalse())
		})

		It("pushes only coordinates for a small move", func() {
			move(0.1)
			Expect(calc.CalculationRequired(calculator.QuantityEnergy)).To(BeTrue())
			_, err := calc.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Calls()).To(Equal([]string{enginetest.UpdateCoordinates, enginetest.Energy}))
			Expect(calc.NeighborList().Updates()).To(Equal(1))
		})

		It("rebuilds but does not push an unchanged neighbor map", func() {
			move(1)
			_, err := calc.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(calc.NeighborList().Updates()).To(Equal(2))
			Expect(rec.Calls()).To(Equal([]string{enginetest.UpdateCoordinates, enginetest.Energy}))
		})

		It("pushes a changed neighbor map", func() {
			move(3.5)
			_, err := calc.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Count(enginetest.SetNeighborList)).To(Equal(2))
			Expect(calc.NeighborList().Map().Entries()).To(Equal(0))
		})

		It("pushes only charges when charges change", func() {
			next := calc.Structure()
			next.SetCharges([]float64{0.2, -0.2})
			calc.SetStructure(next)
			_, err := calc.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Calls()).To(Equal([]string{enginetest.UpdateCharges, enginetest.Energy}))
		})

		It("pushes the cell and the neighbor lists when the cell changes", func() {
			next := calc.Structure()
			next.Cell = atoms.Orthorhombic(12, 12, 12)
			calc.SetStructure(next)
			_, err := calc.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Calls()).To(Equal([]string{
				enginetest.CreateCell,
				enginetest.SetNeighborList,
				enginetest.SetNeighborList,
				enginetest.Energy,
			}))
		})

		It("reinitializes when species change", func() {
			next := calc.Structure()
			next.Atoms[1].Symbol = "Si"
			calc.SetStructure(next)
			Expect(calc.Sync()).To(Succeed())
			Expect(rec.Count(enginetest.CreateAtoms)).To(Equal(1))
			Expect(rec.Atoms.Symbols).To(Equal([]string{"Si", "Si"}))
		})

		It("reinitializes when the atom count changes", func() {
			next := calc.Structure()
			next.Atoms = append(next.Atoms, atoms.Atom{Symbol: "O", Mass: 16, Position: atoms.Vec3{5, 5, 5}})
			calc.SetStructure(next)
			Expect(calc.Sync()).To(Succeed())
			Expect(rec.Count(enginetest.CreateAtoms)).To(Equal(1))
			Expect(rec.NumberOfAtoms()).To(Equal(3))
		})

		It("invalidates results for every kind of structural change", func() {
			changes := map[string]func(s *atoms.Structure){
				"position": func(s *atoms.Structure) { s.Atoms[0].Position[1] += 0.01 },
				"charge":   func(s *atoms.Structure) { s.Atoms[0].Charge = 1 },
				"species":  func(s *atoms.Structure) { s.Atoms[0].Symbol = "O" },
				"tag":      func(s *atoms.Structure) { s.Atoms[0].Tag = 7 },
			}
			for name, change := range changes {
				_, err := calc.Forces()
				Expect(err).NotTo(HaveOccurred())
				Expect(calc.CalculationRequired(calculator.QuantityForces)).To(BeFalse(), name)

				next := calc.Structure()
				change(next)
				calc.SetStructure(next)
				Expect(calc.CalculationRequired(calculator.QuantityForces)).To(BeTrue(), name)
			}
		})

		It("pushes potentials again after one is added", func() {
			Expect(calc.AddPotential(spring(4, "O", "O"))).To(Succeed())
			Expect(calc.CalculationRequired()).To(BeTrue())
			Expect(calc.Sync()).To(Succeed())
			Expect(rec.Count(enginetest.AllocatePotentials)).To(Equal(1))
			Expect(rec.Count(enginetest.AddPotential)).To(Equal(3))
			Expect(rec.Count(enginetest.BuildPotentialLists)).To(Equal(1))
			Expect(calc.NeighborList().Cutoffs()).To(Equal([]float64{3, 4}))
		})

		It("keeps the neighbor list when cutoffs shrink", func() {
			list := calc.NeighborList()
			Expect(calc.SetPotentials(interaction.NewSet(spring(2, "Si", "O")))).To(Succeed())
			Expect(calc.Sync()).To(Succeed())
			Expect(calc.NeighborList()).To(BeIdenticalTo(list))
		})

		It("notices potentials added to the shared set", func() {
			calc.Potentials().Add(spring(5, "Si", "Si"))
			Expect(calc.CalculationRequired(calculator.QuantityEnergy)).To(BeTrue())
			Expect(calc.Sync()).To(Succeed())
			Expect(calc.NeighborList().Cutoffs()).To(Equal([]float64{5, 3}))
		})
	})

	Describe("Coulomb summation", func() {
		It("pushes Ewald parameters and removes them again", func() {
			cb, err := interaction.NewEwald(3, 2, 0.5, 0.0055, nil)
			Expect(err).NotTo(HaveOccurred())
			calc.SetCoulomb(cb)
			Expect(calc.Sync()).To(Succeed())
			Expect(rec.Ewald).NotTo(BeNil())
			Expect(rec.Ewald.Scales).To(Equal([]float64{1, 1}))
			Expect(rec.Ewald.KLimits).To(Equal([3]int{20, 20, 20}))

			rec.Reset()
			calc.SetCoulomb(nil)
			Expect(calc.Sync()).To(Succeed())
			Expect(rec.Calls()).To(Equal([]string{enginetest.SetEwaldParameters}))
			Expect(rec.Ewald).To(BeNil())
		})

		It("pushes Ewald parameters again when the cell changes", func() {
			cb, err := interaction.NewEwald(3, 2, 0.5, 0.0055, nil)
			Expect(err).NotTo(HaveOccurred())
			calc.SetCoulomb(cb)
			Expect(calc.Sync()).To(Succeed())

			next := calc.Structure()
			next.Cell = atoms.Orthorhombic(10, 10, 5)
			calc.SetStructure(next)
			Expect(calc.Sync()).To(Succeed())
			Expect(rec.Count(enginetest.SetEwaldParameters)).To(Equal(2))
			Expect(rec.Ewald.KLimits).To(Equal([3]int{20, 20, 10}))
		})

		It("rejects a scaling vector of the wrong length", func() {
			cb, err := interaction.NewEwald(3, 2, 0.5, 0.0055, []float64{1})
			Expect(err).NotTo(HaveOccurred())
			calc.SetCoulomb(cb)
			_, err = calc.Energy()
			Expect(err).To(MatchError(core.ErrInvalidParameters))
		})

		It("extends the cutoffs to the real-space range", func() {
			cb, err := interaction.NewEwald(6, 2, 0.5, 0.0055, nil)
			Expect(err).NotTo(HaveOccurred())
			calc.SetCoulomb(cb)
			Expect(calc.IndividualCutoffs(1)).To(Equal([]float64{6, 6}))
			Expect(calc.IndividualCutoffs(0.5)).To(Equal([]float64{3, 3}))
		})
	})

	Describe("errors", func() {
		It("requires a structure", func() {
			empty := calculator.New(m)
			_, err := empty.Energy()
			Expect(err).To(MatchError(core.ErrNoStructure))
			Expect(empty.CalculationRequired()).To(BeTrue())
			Expect(empty.IndividualCutoffs(1)).To(BeNil())
			Expect(empty.CreateNeighborLists(nil, 0.5)).To(MatchError(core.ErrNoStructure))
		})

		It("does not record a failed push", func() {
			boom := errors.New("boom")
			rec.FailOn(enginetest.CreateCell, boom)
			_, err := calc.Energy()
			Expect(err).To(MatchError(boom))

			var pushErr *core.PushError
			Expect(errors.As(err, &pushErr)).To(BeTrue())
			Expect(pushErr.Op).To(Equal("create cell"))
			Expect(m.CellReady(st)).To(BeFalse())
			Expect(m.AtomsReady(st)).To(BeTrue())

			rec.FailOn(enginetest.CreateCell, nil)
			_, err = calc.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(m.CellReady(st)).To(BeTrue())
			Expect(rec.Count(enginetest.CreateAtoms)).To(Equal(1))
		})

		It("forgets a potential table that failed midway", func() {
			Expect(calc.Sync()).To(Succeed())
			Expect(m.PotentialsReady(calc.Potentials())).To(BeTrue())

			rec.FailOn(enginetest.AddPotential, errors.New("table full"))
			Expect(calc.AddPotential(spring(2, "O", "O"))).To(Succeed())
			Expect(calc.Sync()).NotTo(Succeed())
			Expect(m.PotentialsReady(calc.Potentials())).To(BeFalse())
			Expect(m.PotentialListsReady()).To(BeFalse())

			rec.FailOn(enginetest.AddPotential, nil)
			Expect(calc.Sync()).To(Succeed())
			Expect(m.PotentialsReady(calc.Potentials())).To(BeTrue())
			Expect(m.PotentialListsReady()).To(BeTrue())
		})

		It("forgets neighbor lists that failed midway", func() {
			rec.FailOn(enginetest.SetNeighborList, errors.New("nope"))
			Expect(calc.Sync()).NotTo(Succeed())
			Expect(m.NeighborListsReady(calc.NeighborList().Map())).To(BeFalse())
		})

		It("rejects explicit cutoffs of the wrong length", func() {
			Expect(calc.CreateNeighborLists([]float64{1}, 0.5)).To(MatchError(core.ErrInvalidParameters))
		})

		It("rejects invalid potentials", func() {
			bad := interaction.Potential{Type: compute.TypeSpring, Cutoff: 1}
			Expect(calc.AddPotential(bad)).To(MatchError(core.ErrInvalidParameters))
			Expect(calc.SetPotentials(interaction.NewSet(bad))).To(MatchError(core.ErrInvalidParameters))
		})
	})

	Describe("explicit neighbor lists", func() {
		It("uses the given cutoffs and skin", func() {
			Expect(calc.CreateNeighborLists([]float64{4, 4}, 0.2)).To(Succeed())
			list := calc.NeighborList()
			Expect(calc.Sync()).To(Succeed())
			Expect(calc.NeighborList()).To(BeIdenticalTo(list))
			Expect(list.Skin()).To(Equal(0.2))
			Expect(list.Cutoffs()).To(Equal([]float64{4, 4}))
			Expect(list.Map().Entries()).To(Equal(2))
		})

		It("recreates lists that are too short for the potentials", func() {
			Expect(calc.CreateNeighborLists([]float64{1, 1}, 0.2)).To(Succeed())
			Expect(calc.Sync()).To(Succeed())
			Expect(calc.NeighborList().Cutoffs()).To(Equal([]float64{3, 3}))
		})

		It("keeps short lists given after initialization", func() {
			Expect(calc.Sync()).To(Succeed())
			Expect(calc.CreateNeighborLists([]float64{1, 1}, 0.2)).To(Succeed())
			Expect(calc.Sync()).To(Succeed())
			Expect(calc.NeighborList().Cutoffs()).To(Equal([]float64{1, 1}))
			Expect(calc.NeighborList().Map().Entries()).To(Equal(0))
		})
	})

	Describe("sharing one engine", func() {
		It("makes each calculator push its own structure", func() {
			other := calculator.New(m)
			moved := siliconOxide()
			moved.Atoms[1].Position[0] = 3
			other.SetStructure(moved)
			Expect(other.SetPotentials(calc.Potentials())).To(Succeed())

			_, err := calc.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(calc.CalculationRequired(calculator.QuantityEnergy)).To(BeFalse())

			_, err = other.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(calc.CalculationRequired(calculator.QuantityEnergy)).To(BeTrue())
			Expect(rec.Count(enginetest.CreateAtoms)).To(Equal(1))
			Expect(rec.Atoms.Positions[1][0]).To(Equal(3.0))
		})

		It("compares calculators by structure, lists and potentials", func() {
			other := calculator.New(m)
			other.SetStructure(siliconOxide())
			Expect(other.SetPotentials(calc.Potentials())).To(Succeed())
			Expect(calc.Equal(other)).To(BeTrue())

			Expect(calc.Sync()).To(Succeed())
			Expect(calc.Equal(other)).To(BeFalse())
			Expect(other.Sync()).To(Succeed())
			Expect(calc.Equal(other)).To(BeTrue())
			Expect(calc.Equal(nil)).To(BeFalse())
		})
	})

	Describe("results", func() {
		It("combines kinetic and potential stress", func() {
			rec.Stress = [6]float64{100, 200, 300, 0, 0, 50}
			moving := siliconOxide()
			moving.Atoms[0].Momentum = atoms.Vec3{28, 0, 0}
			calc.SetStructure(moving)

			s, err := calc.Stress()
			Expect(err).NotTo(HaveOccurred())
			// kinetic xx = 28²/28 = 28
			Expect(s).To(Equal([6]float64{-0.128, -0.2, -0.3, 0, 0, -0.05}))
		})

		It("returns electronegativity differences from the mean", func() {
			rec.ChiFunc = func(q []float64) []float64 { return []float64{1, 3} }
			d, err := calc.ElectronegativityDifferences()
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(Equal([]float64{-1, 1}))
		})

		It("passes engine failures through", func() {
			boom := errors.New("diverged")
			rec.FailOn(enginetest.Forces, boom)
			_, err := calc.Forces()
			Expect(err).To(MatchError(boom))
			_, err = calc.Stress()
			Expect(err).To(MatchError(boom))
		})
	})
})

var _ = Describe("Calculator with the CPU engine", func() {
	It("evaluates a Lennard-Jones dimer at its minimum", func() {
		calc := calculator.New(calculator.NewMirror(compute.NewCPU()))
		r := math.Pow(2, 1.0/6)
		calc.SetStructure(&atoms.Structure{
			Cell: atoms.Orthorhombic(15, 15, 15),
			PBC:  [3]bool{true, true, true},
			Atoms: []atoms.Atom{
				{Symbol: "Ar", Mass: 40, Position: atoms.Vec3{1, 1, 1}},
				{Symbol: "Ar", Mass: 40, Position: atoms.Vec3{1 + r, 1, 1}},
			},
		})
		Expect(calc.AddPotential(interaction.Potential{
			Type: compute.TypeLennardJones, Targets: interaction.BySpecies([]string{"Ar", "Ar"}), Cutoff: 5, SoftCutoff: 5, Params: []float64{1, 1},
		})).To(Succeed())

		e, err := calc.Energy()
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeNumerically("~", -1, 1e-12))

		f, err := calc.Forces()
		Expect(err).NotTo(HaveOccurred())
		Expect(f[0].Norm()).To(BeNumerically("<", 1e-10))
	})

	It("relaxes charges before computing the energy", func() {
		calc := calculator.New(calculator.NewMirror(compute.NewCPU()), calculator.WithChargeRelaxation(relax.NewDamped()))
		calc.SetStructure(&atoms.Structure{
			Cell: atoms.Orthorhombic(10, 10, 10),
			PBC:  [3]bool{true, true, true},
			Atoms: []atoms.Atom{
				{Symbol: "Na", Mass: 23, Position: atoms.Vec3{1, 1, 1}},
				{Symbol: "Cl", Mass: 35, Position: atoms.Vec3{4, 1, 1}},
			},
		})
		selfEnergy := func(symbol string, chi0 float64) interaction.Potential {
			return interaction.Potential{
				Type: compute.TypeChargeSelf, Targets: interaction.BySpecies([]string{symbol}), Params: []float64{chi0, 2},
			}
		}
		Expect(calc.SetPotentials(interaction.NewSet(selfEnergy("Na", 1), selfEnergy("Cl", 3)))).To(Succeed())

		chi, err := calc.Electronegativities()
		Expect(err).NotTo(HaveOccurred())
		Expect(chi).To(Equal([]float64{-1, -3}))

		e, err := calc.Energy()
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeNumerically("~", -0.5, 1e-6))

		q := calc.Structure().Charges()
		Expect(q[0]).To(BeNumerically("~", 0.5, 1e-3))
		Expect(q[1]).To(BeNumerically("~", -0.5, 1e-3))
	})
})
