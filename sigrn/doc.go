// Package sigrn implements the structural-causal VAE used to infer gene
// regulatory networks from single-cell expression.
//
// Each gene's scalar expression is encoded by a shared MLP, mixed across
// genes by the linear structural equation (I - A), sampled in latent space,
// mixed back with (I - A)^-1 and decoded by a second shared MLP. The
// off-diagonal weights of A are the inferred network.
//
// Tensors of shape [sample, gene, feature] are stored feature-major in a
// single *mat.Dense so the shared MLPs run as one matrix product over every
// (sample, gene) position.
//
// The package only computes the forward pass, the losses and their
// gradients. Optimizers, penalties on A and the training schedule live with
// the caller.
package sigrn
