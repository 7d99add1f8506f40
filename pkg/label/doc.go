// Package label defines the classification hierarchy that packages are
// placed into.
//
// # Labels
//
// A [Label] is one of:
//
//   - a binary label such as "@Core", assigned to binary packages;
//   - a source label such as "Core", naming a component;
//   - a build config such as "Core/standard";
//   - an auto flavor such as "python" or a purpose such as "devel", which are
//     pre-assigned to packages and later resolved to a binary label.
//
// Binary labels derive variants: "@Core+python" is the python flavor of
// "@Core", "@Core-devel" its devel purpose and "@Core+python-devel" both.
// Variants know their parent, so [Label.BaseLabel] and [Label.FindSibling]
// can move around the derivation tree.
//
// # Schemes
//
// A [Scheme] owns all labels of a classification in one arena
// ([poset.Domain]). [Scheme.Order] builds the runtime partial order of the
// binary labels, in which a label lies above everything it may require.
// Schemes are usually loaded from TOML with [LoadFile] or [LoadTOML].
package label
