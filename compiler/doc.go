/*

Process of compilation

BX source text (.bx) ->
	parse ->
Untyped AST ->
	type check ->
Typed AST (.parsed) ->
	lower ->
RTL (.rtl) ->
	compile ->
AMD64 assembly (.s) ->
	assemble and link against runtime/bxrt.c ->
Binary executable

*/
package compiler
