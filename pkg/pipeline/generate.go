package pipeline

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"time"

	"github.com/23F3003943/student-api-server/pkg/task"
)

const mitLicense = `MIT License

Copyright (c) %d %s

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
`

// writeProjectFiles materializes the minimal publishable content set for a
// task into dir: an index page embedding the brief, a readme referencing the
// nonce, and an MIT license stamped with the submitter and the current year.
func writeProjectFiles(dir string, t *task.Task, now time.Time) error {
	index := fmt.Sprintf("<html><body><p>%s</p></body></html>", html.EscapeString(t.Brief))
	readme := fmt.Sprintf("# Task Brief\n%s\n\nNonce: %s\n", t.Brief, t.Nonce)
	license := fmt.Sprintf(mitLicense, now.Year(), t.Email)

	files := map[string]string{
		"index.html": index,
		"README.md":  readme,
		"LICENSE":    license,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
