// Package model defines the provider-neutral language model interface used
// by LLM-backed agents, plus a deterministic mock for tests.
//
// Provider adapters live in the subpackages model/anthropic and model/openai.
// Task-aware selection across several models is handled by package router.
package model
