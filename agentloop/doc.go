// Package agentloop implements the generate, compile and correct loop.
//
// A Loop asks a Generator for a program, pulls the code block out of the
// response, writes it to a per-iteration source file and compiles it. A
// failed compile feeds the previous source and the compiler diagnostics
// back into a correction prompt, and the cycle repeats until the compiler
// exits cleanly, a configured iteration limit is hit, or a fatal error
// occurs.
//
// # States
//
//	INIT -> GENERATING -> WRITING -> COMPILING -> SUCCEEDED
//	                ^                    |
//	                +---- CORRECTING <---+
//
// Any fatal error moves the loop to FAILED. Every transition is logged and
// delivered to registered observers.
//
// # Quick Start
//
//	gen := agentloop.NewClientGenerator(client, agentloop.GeneratorConfig{Model: "codellama"})
//	loop, err := agentloop.New(agentloop.Config{
//	    Task:     "a function that calculates the factorial of a number",
//	    Language: "rust",
//	    FileName: "main.rs",
//	}, gen, extract.New("scanner", "rust"), ws, compiler, log)
//	if err != nil {
//	    return err
//	}
//	summary, err := loop.Run(ctx)
package agentloop
