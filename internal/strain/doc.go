// Package strain estimates the local flow-map deformation around a particle
// and derives its stretching measures.
//
// The deformation gradient is the 2×2 least-squares map taking neighbor
// offsets in the reference tangent plane to neighbor offsets in the target
// tangent plane. The right Cauchy-Green tensor C = JᵀJ then yields
//
//	FTLE     = ln(sqrt(λ2)) / |Δt|
//	Isotropy = sqrt(λ1 / λ2)
//
// with λ1 ≤ λ2 the eigenvalues of C.
package strain
