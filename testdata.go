package main

// Test content constants shared across test files

const (
	// Basic markdown
	testMarkdownSimple = "# Test"
	testMarkdownHeader = "# Hello World\n\nThis is a **test**."
	testMarkdownTable  = "| A | B |\n|---|---|\n| 1 | 2 |"

	// Math fixtures
	testMarkdownInlineMath  = "The formula is $x_1 + y_2$ and also:\n- first\n- second"
	testMarkdownDisplayMath = "Einstein said:\n\n$$E = mc^2$$\n\nfamously."
	testMarkdownMixedMath   = `inline $a_1$ mid \(b\) and display $$c$$ plus \[d\]`

	// Security test paths
	testPathTraversal  = "../../../etc/passwd"
	testPathURLEncoded = "/media/%2e%2e%2f%2e%2e%2fetc%2fpasswd"
	testPathAbsolute   = "/etc/passwd"
)
