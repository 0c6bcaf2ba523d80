// Package rag holds the retrieval half of the recipe pipeline: turning a
// user's ingredients and preferences into query text, embedding it with the
// configured model and ranking dataset records against it.
//
// The embedding model must be the one that produced the dataset matrix;
// otherwise the dimensions disagree and retrieval fails.
package rag
