package ftle_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"

	"github.com/san-kum/meshftle/internal/dynamo"
	"github.com/san-kum/meshftle/internal/flow"
	"github.com/san-kum/meshftle/internal/ftle"
	"github.com/san-kum/meshftle/internal/trajectory"
	"gonum.org/v1/gonum/spatial/r3"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var window = dynamo.Window{Initial: 0, Final: 4}

func lagrangian() ftle.Options {
	opts := ftle.DefaultOptions()
	opts.Mode = trajectory.Lagrangian
	opts.Neighborhood = 6
	return opts
}

func expectAll(f ftle.Field, ftleVal, iso, tol float64) {
	ExpectWithOffset(1, f.Valid()).To(Equal(f.Len()))
	for _, p := range f.Particles {
		ExpectWithOffset(1, p.FTLE).To(BeNumerically("~", ftleVal, tol), "particle %d", p.Index)
		ExpectWithOffset(1, p.Isotropy).To(BeNumerically("~", iso, tol), "particle %d", p.Index)
	}
}

var _ = Describe("Compute", func() {
	ctx := context.Background()

	Context("with zero velocity", func() {
		It("keeps particles still and reports no stretching", func() {
			s := surface(static)
			res, err := ftle.Compute(ctx, s, seeds(), window, ftle.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())

			for _, f := range []ftle.Field{res.Forward, res.Backward} {
				expectAll(f, 0, 1, 1e-12)
				for _, p := range f.Particles {
					Expect(p.Lambda1).To(BeNumerically("~", 1, 1e-12))
					Expect(p.Lambda2).To(BeNumerically("~", 1, 1e-12))
					Expect(p.J[0][0]).To(BeNumerically("~", 1, 1e-12))
					Expect(p.J[0][1]).To(BeNumerically("~", 0, 1e-12))
				}
			}
			for i, tr := range res.Forward.Trajectories {
				for _, x := range tr.Positions {
					Expect(x).To(Equal(seeds()[i]))
				}
			}
		})

		It("holds for any window", func() {
			s := surface(static)
			res, err := ftle.Compute(ctx, s, seeds(), dynamo.Window{Initial: 1, Final: 2}, ftle.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			expectAll(res.Forward, 0, 1, 1e-12)
			expectAll(res.Backward, 0, 1, 1e-12)
			Expect(res.Forward.Interval).To(Equal(0.5))
		})
	})

	Context("with a rigid rotation", func() {
		DescribeTable("reports no stretching",
			func(axis r3.Vec, omega float64) {
				s := surface(spin(r3.Unit(axis), r3.Vec{X: 0.5, Y: 0.5}, omega))
				res, err := ftle.Compute(ctx, s, seeds(), window, lagrangian())
				Expect(err).NotTo(HaveOccurred())
				expectAll(res.Forward, 0, 1, 1e-9)
				expectAll(res.Backward, 0, 1, 1e-9)
			},
			Entry("in plane", r3.Vec{Z: 1}, 0.7),
			Entry("tilted axis", r3.Vec{X: 1, Y: 1, Z: 1}, 0.4),
			Entry("half turn", r3.Vec{X: 1}, math.Pi/2),
		)

		It("holds when advected through the interpolated field", func() {
			s := surface(spin(r3.Vec{Z: 1}, r3.Vec{X: 0.5, Y: 0.5}, 0.3))
			opts := ftle.DefaultOptions()
			opts.Scheme = flow.Barycentric
			opts.SubSteps = 8
			res, err := ftle.Compute(ctx, s, seeds(), window, opts)
			Expect(err).NotTo(HaveOccurred())
			expectAll(res.Forward, 0, 1, 1e-6)
			expectAll(res.Backward, 0, 1, 1e-6)
		})
	})

	Context("with uniform scaling", func() {
		It("gives ln(s)/Δt forward and its negative backward", func() {
			const rate = 0.3
			s := surface(stretch(rate, rate))
			res, err := ftle.Compute(ctx, s, seeds(), window, lagrangian())
			Expect(err).NotTo(HaveOccurred())

			scale := math.Exp(rate * 2)
			expectAll(res.Forward, math.Log(scale)/2, 1, 1e-9)
			expectAll(res.Backward, -math.Log(scale)/2, 1, 1e-9)
			for _, p := range res.Forward.Particles {
				Expect(p.Lambda1).To(BeNumerically("~", scale*scale, 1e-9))
				Expect(p.Lambda2).To(BeNumerically("~", scale*scale, 1e-9))
			}
		})
	})

	Context("with an anisotropic stretch", func() {
		It("orders the eigenvalues and reports min/max as isotropy", func() {
			s := surface(stretch(0.4, -0.2))
			res, err := ftle.Compute(ctx, s, seeds(), window, lagrangian())
			Expect(err).NotTo(HaveOccurred())

			a, b := math.Exp(0.4*2), math.Exp(-0.2*2)
			for _, p := range res.Forward.Particles {
				Expect(p.Lambda1).To(BeNumerically("~", b*b, 1e-9))
				Expect(p.Lambda2).To(BeNumerically("~", a*a, 1e-9))
			}
			expectAll(res.Forward, 0.4, b/a, 1e-9)
			expectAll(res.Backward, 0.2, b/a, 1e-9)
		})
	})

	Context("determinism", func() {
		It("does not depend on the worker count", func() {
			s := surface(spin(r3.Vec{Z: 1}, r3.Vec{X: 0.4, Y: 0.6}, 0.5))
			one := ftle.DefaultOptions()
			one.Workers = 1
			many := ftle.DefaultOptions()
			many.Workers = 8

			a, err := ftle.Compute(ctx, s, seeds(), window, one)
			Expect(err).NotTo(HaveOccurred())
			b, err := ftle.Compute(ctx, s, seeds(), window, many)
			Expect(err).NotTo(HaveOccurred())

			Expect(b.Forward.FTLE()).To(Equal(a.Forward.FTLE()))
			Expect(b.Backward.Isotropy()).To(Equal(a.Backward.Isotropy()))
			Expect(b.Forward.Trajectories).To(Equal(a.Forward.Trajectories))
			for i := range a.Forward.Particles {
				Expect(b.Forward.Particles[i].Neighbors).To(Equal(a.Forward.Particles[i].Neighbors))
			}
		})
	})

	Context("with a degenerate neighborhood", func() {
		// Four particles on a line far from the block: each one's three
		// nearest neighbors are collinear.
		line := []r3.Vec{{X: 0.9, Y: 0.9}, {X: 0.92, Y: 0.9}, {X: 0.94, Y: 0.9}, {X: 0.96, Y: 0.9}}
		base := func() []r3.Vec {
			var out []r3.Vec
			for _, p := range seeds() {
				out = append(out, r3.Scale(0.5, p))
			}
			return out
		}

		opts := func() ftle.Options {
			o := lagrangian()
			o.Neighborhood = 3
			return o
		}

		It("marks only the affected particles", func() {
			s := surface(spin(r3.Vec{Z: 1}, r3.Vec{X: 0.5, Y: 0.5}, 0.5))
			clean, err := ftle.Compute(ctx, s, base(), window, opts())
			Expect(err).NotTo(HaveOccurred())

			mixed, err := ftle.Compute(ctx, s, append(base(), line...), window, opts())
			Expect(err).NotTo(HaveOccurred())
			Expect(mixed.Forward.Len()).To(Equal(len(base()) + len(line)))

			for _, f := range []ftle.Field{mixed.Forward, mixed.Backward} {
				fails := f.Failures()
				Expect(fails).To(HaveLen(len(line)))
				for j, p := range fails {
					Expect(p.Index).To(Equal(len(base()) + j))
					Expect(math.IsNaN(p.FTLE)).To(BeTrue())
					Expect(math.IsNaN(p.Isotropy)).To(BeTrue())
					Expect(errors.Is(p.Err, dynamo.ErrDegenerateNeighborhood)).To(BeTrue())
					Expect(dynamo.IsPerParticle(p.Err)).To(BeTrue())
				}
			}

			n := len(base())
			Expect(mixed.Forward.FTLE()[:n]).To(Equal(clean.Forward.FTLE()))
			Expect(mixed.Forward.Isotropy()[:n]).To(Equal(clean.Forward.Isotropy()))
			Expect(mixed.Backward.FTLE()[:n]).To(Equal(clean.Backward.FTLE()))
			Expect(mixed.Backward.Isotropy()[:n]).To(Equal(clean.Backward.Isotropy()))
		})

		It("follows the configuration each direction is seeded in", func() {
			// Compressing y packs the final block into tight columns, so each
			// backward particle's three nearest neighbors share a column.
			s := surface(stretch(0.4, -0.2))
			res, err := ftle.Compute(ctx, s, base(), window, opts())
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Forward.Valid()).To(Equal(len(base())))
			Expect(res.Backward.Valid()).To(BeZero())
			Expect(res.Backward.Failures()).To(HaveLen(len(base())))
			for _, p := range res.Backward.Failures() {
				Expect(p.Err).To(MatchError(dynamo.ErrDegenerateNeighborhood))
			}
		})

		It("fails the run under the abort policy", func() {
			s := surface(static)
			o := opts()
			o.Policy = ftle.Abort
			_, err := ftle.Compute(ctx, s, append(base(), line...), window, o)
			Expect(err).To(MatchError(dynamo.ErrDegenerateNeighborhood))

			var pe *dynamo.ParticleError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Index).To(Equal(len(base())))
		})
	})

	Context("at the boundaries", func() {
		s := surface(static)

		DescribeTable("rejects bad windows with ErrRange",
			func(w dynamo.Window) {
				_, err := ftle.Compute(ctx, s, seeds(), w, ftle.DefaultOptions())
				Expect(err).To(MatchError(dynamo.ErrRange))
			},
			Entry("empty", dynamo.Window{Initial: 2, Final: 2}),
			Entry("reversed", dynamo.Window{Initial: 3, Final: 1}),
			Entry("past the end", dynamo.Window{Initial: 0, Final: 5}),
			Entry("negative", dynamo.Window{Initial: -1, Final: 2}),
		)

		DescribeTable("fails every particle when the neighborhood is below three",
			func(size int) {
				o := ftle.DefaultOptions()
				o.Neighborhood = size
				res, err := ftle.Compute(ctx, s, seeds(), window, o)
				Expect(err).NotTo(HaveOccurred())
				for _, f := range []ftle.Field{res.Forward, res.Backward} {
					Expect(f.Valid()).To(BeZero())
					for _, p := range f.Particles {
						Expect(p.Err).To(MatchError(dynamo.ErrDegenerateNeighborhood))
					}
				}
			},
			Entry("two", 2),
			Entry("zero", 0),
		)

		It("rejects an empty seed set", func() {
			_, err := ftle.Compute(ctx, s, nil, window, ftle.DefaultOptions())
			Expect(err).To(MatchError(dynamo.ErrDataIntegrity))
		})

		It("rejects non-finite seeds", func() {
			bad := append(seeds(), r3.Vec{X: math.NaN()})
			_, err := ftle.Compute(ctx, s, bad, window, ftle.DefaultOptions())
			Expect(err).To(MatchError(dynamo.ErrDataIntegrity))
		})

		It("rejects unknown options", func() {
			o := ftle.DefaultOptions()
			o.Integrator = "leapfrog"
			_, err := ftle.Compute(ctx, s, seeds(), window, o)
			Expect(err).To(HaveOccurred())

			o = ftle.DefaultOptions()
			o.Policy = "drop"
			_, err = ftle.Compute(ctx, s, seeds(), window, o)
			Expect(err).To(HaveOccurred())
		})

		It("stops on a cancelled context", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := ftle.Compute(cctx, s, seeds(), window, ftle.DefaultOptions())
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	It("reports progress for every particle in both directions", func() {
		var fwd, bwd, wrongTotal atomic.Int64
		o := ftle.DefaultOptions()
		o.Progress = func(dir dynamo.Direction, _, total int) {
			if total != 25 {
				wrongTotal.Add(1)
			}
			if dir == dynamo.Forward {
				fwd.Add(1)
			} else {
				bwd.Add(1)
			}
		}
		_, err := ftle.Compute(ctx, surface(static), seeds(), window, o)
		Expect(err).NotTo(HaveOccurred())
		Expect(fwd.Load()).To(BeEquivalentTo(25))
		Expect(bwd.Load()).To(BeEquivalentTo(25))
		Expect(wrongTotal.Load()).To(BeZero())
	})

	It("re-seeds the backward pass at the final configuration", func() {
		s := surface(stretch(0.3, 0.3))
		res, err := ftle.Compute(ctx, s, seeds(), window, lagrangian())
		Expect(err).NotTo(HaveOccurred())

		scale := math.Exp(0.6)
		for i, p := range res.Backward.Particles {
			Expect(p.Seed.X).To(BeNumerically("~", seeds()[i].X*scale, 1e-12))
			Expect(res.Backward.Trajectories[i].End().X).To(BeNumerically("~", seeds()[i].X, 1e-12))
		}
	})
})

var _ = Describe("ComputeArrays", func() {
	It("matches Compute on the same data", func() {
		s := surface(stretch(0.2, 0.1))
		in := ftle.Arrays{Initial: 0, Final: 4, Neighborhood: 6, Times: s.Times()}
		for k := 0; k < s.Len(); k++ {
			var tris [][3]int
			for _, t := range s.Triangles(k) {
				tris = append(tris, [3]int(t))
			}
			var pos, vel [][3]float64
			for i := 0; i < s.NodeCount(); i++ {
				p, v := s.Position(k, i), s.Velocity(k, i)
				pos = append(pos, [3]float64{p.X, p.Y, p.Z})
				vel = append(vel, [3]float64{v.X, v.Y, v.Z})
			}
			in.Triangles = append(in.Triangles, tris)
			in.Positions = append(in.Positions, pos)
			in.Velocities = append(in.Velocities, vel)
		}
		for _, p := range seeds() {
			in.Particles = append(in.Particles, [3]float64{p.X, p.Y, p.Z})
		}

		got, err := ftle.ComputeArrays(context.Background(), in, lagrangian())
		Expect(err).NotTo(HaveOccurred())
		want, err := ftle.Compute(context.Background(), s, seeds(), window, lagrangian())
		Expect(err).NotTo(HaveOccurred())

		fwd, ftraj, fiso, bwd, btraj, biso := got.Unpack()
		Expect(fwd).To(Equal(want.Forward.FTLE()))
		Expect(fiso).To(Equal(want.Forward.Isotropy()))
		Expect(bwd).To(Equal(want.Backward.FTLE()))
		Expect(biso).To(Equal(want.Backward.Isotropy()))
		Expect(ftraj).To(HaveLen(25))
		Expect(btraj).To(HaveLen(25))
	})

	It("propagates data integrity errors", func() {
		_, err := ftle.ComputeArrays(context.Background(), ftle.Arrays{Times: []float64{0}}, ftle.DefaultOptions())
		Expect(err).To(MatchError(dynamo.ErrDataIntegrity))
	})
})

var _ = Describe("Sinks", func() {
	It("fans out until the first error", func() {
		var calls []string
		boom := errors.New("boom")
		record := func(name string, err error) ftle.Sink {
			return ftle.SinkFunc(func(context.Context, ftle.RunInfo, *ftle.Result) error {
				calls = append(calls, name)
				return err
			})
		}
		sinks := ftle.Sinks{record("a", nil), record("b", boom), record("c", nil)}
		Expect(sinks.Consume(context.Background(), ftle.RunInfo{}, &ftle.Result{})).To(MatchError(boom))
		Expect(calls).To(Equal([]string{"a", "b"}))
	})

	It("describes a run", func() {
		s := surface(static)
		info := ftle.NewRunInfo("static", s, 25, window, ftle.Options{Neighborhood: 6})
		Expect(info.Model).To(Equal("static"))
		Expect(info.Nodes).To(Equal(121))
		Expect(info.FinalTime).To(Equal(2.0))
		Expect(info.Integrator).To(Equal("rk4"))
		Expect(info.Scheme).To(Equal("idw"))
		Expect(info.Policy).To(Equal("mark"))
	})
})
