package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
)

// gerador de rajada: dispara N requisições simultâneas de score e conta
// os status, para validar na prática a admissão (200 x 503).
func main() {
	base := "http://localhost:8000"
	if v := os.Getenv("API_URL"); v != "" {
		base = v
	}
	imagePath := os.Getenv("IMAGE_PATH")
	if imagePath == "" {
		fmt.Println("defina IMAGE_PATH com o caminho de uma imagem que o servidor enxerga")
		os.Exit(2)
	}

	const n = 50
	counts := make(map[int]int)
	var mu sync.Mutex
	var wg sync.WaitGroup

	fmt.Printf("disparando %d requisições contra %s\n", n, base)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			form := url.Values{"image_path": {imagePath}}
			resp, err := http.Post(base+"/score-from-path",
				"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
			if err != nil {
				fmt.Printf("erro: %s\n", err)
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			mu.Lock()
			counts[resp.StatusCode]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for code, c := range counts {
		fmt.Printf("status %d: %d\n", code, c)
	}
}
