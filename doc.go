// Copyright (c) 2014, Kevin Walsh.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ted is an in-memory, typed relational-algebra engine that embeds a
// Datalog-style query language into a host program. Host code declares typed
// predicates, attaches rules written in a small term algebra, and calls
// Program.Update to bring every dynamic predicate up to date for one tick.
//
// The engine is organized bottom-up: Table and its indices (KeyIndex,
// GeneralIndex) hold rows; ValueCell and MatchOperation bind and test a row's
// columns against the current rule-scope bindings; Call implements a
// restartable "yield next solution" iterator over those bindings; the
// preprocessor compiles a rule body into a tree of Calls; Predicate and
// Program tie rules to tables and schedule per-tick re-evaluation.
package ted
