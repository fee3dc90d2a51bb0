// Command patentrag answers questions about an internal patent corpus with a
// tool-using reasoning agent, over HTTP, MCP, a one-shot CLI or a chat TUI.
package main

func main() {
	Execute()
}
