// Command dashctl is a small CLI client for the dashboard gateway. It keeps
// the session cookie in a local file so successive invocations share one
// gateway session, the same way a browser tab would.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL    string
	CookieName string
	CookieFile string
	OutFormat  string // "json" | "text"
	HTTP       *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid := c.loadSID(); sid != "" {
		req.AddCookie(&http.Cookie{Name: c.CookieName, Value: sid})
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	for _, ck := range resp.Cookies() {
		if ck.Name == c.CookieName {
			c.saveSID(ck.Value, ck.MaxAge)
		}
	}
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func (c *client) loadSID() string {
	b, err := os.ReadFile(c.CookieFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (c *client) saveSID(sid string, maxAge int) {
	if maxAge < 0 || sid == "" {
		_ = os.Remove(c.CookieFile)
		return
	}
	_ = os.MkdirAll(filepath.Dir(c.CookieFile), 0o700)
	_ = os.WriteFile(c.CookieFile, []byte(sid), 0o600)
}

func main() {
	var (
		baseURL    = envOr("DASHCTL_URL", "http://localhost:8080")
		cookieName = envOr("DASHCTL_COOKIE", "dashsid")
		out        = envOr("DASHCTL_OUT", "text")
		timeout    = 30 * time.Second
	)

	home, _ := os.UserHomeDir()
	cookieFile := envOr("DASHCTL_COOKIE_FILE", filepath.Join(home, ".dashctl", "session"))

	root := &cobra.Command{
		Use:   "dashctl",
		Short: "CLI client for the glaucoma dashboard gateway",
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "gateway base URL (env DASHCTL_URL)")
	root.PersistentFlags().StringVar(&out, "out", out, "output format: json|text")

	cl := &client{
		BaseURL:    baseURL,
		CookieName: cookieName,
		CookieFile: cookieFile,
		OutFormat:  out,
		HTTP:       &http.Client{Timeout: timeout},
	}

	// auth group
	var loginUser, loginPassword string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the gateway and store the session cookie",
		RunE: func(cmd *cobra.Command, args []string) error {
			if loginUser == "" || loginPassword == "" {
				return fmt.Errorf("--username and --password are required")
			}
			b, _ := json.Marshal(map[string]string{"username": loginUser, "password": loginPassword})
			status, body, err := cl.do("POST", "/api/auth/login", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("login failed: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	loginCmd.Flags().StringVar(&loginUser, "username", "", "account username or email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Terminate the gateway session",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("POST", "/api/auth/logout", nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Show the current session, role and granted permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/api/auth/session", nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Fetch the composed dashboard for the current role",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/api/dashboard", nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("dashboard failed: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	// patients group
	patientsCmd := &cobra.Command{Use: "patients", Short: "Patient operations"}

	var listPage, listPageSize int
	var listSearch string
	patientsListCmd := &cobra.Command{
		Use:   "list",
		Short: "List patients visible to the current role",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if listPage > 0 {
				q.Set("page", fmt.Sprint(listPage))
			}
			if listPageSize > 0 {
				q.Set("page_size", fmt.Sprint(listPageSize))
			}
			if listSearch != "" {
				q.Set("search", listSearch)
			}
			path := "/api/patients"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			status, body, err := cl.do("GET", path, nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("list failed: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	patientsListCmd.Flags().IntVar(&listPage, "page", 0, "page number")
	patientsListCmd.Flags().IntVar(&listPageSize, "page-size", 0, "page size")
	patientsListCmd.Flags().StringVar(&listSearch, "search", "", "search term")

	patientsGetCmd := &cobra.Command{
		Use:   "get <patient-id>",
		Short: "Fetch one patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/api/patients/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("get failed: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	// predictions group
	predictionsCmd := &cobra.Command{Use: "predictions", Short: "Prediction operations"}

	var predictPatient, predictImage string
	predictCmd := &cobra.Command{
		Use:   "run",
		Short: "Request a glaucoma prediction for a fundus image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if predictPatient == "" || predictImage == "" {
				return fmt.Errorf("--patient and --image are required")
			}
			b, _ := json.Marshal(map[string]string{
				"patient_id": predictPatient,
				"image_id":   predictImage,
			})
			status, body, err := cl.do("POST", "/api/predictions", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("predict failed: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	predictCmd.Flags().StringVar(&predictPatient, "patient", "", "patient id")
	predictCmd.Flags().StringVar(&predictImage, "image", "", "uploaded image id")

	historyCmd := &cobra.Command{
		Use:   "history <patient-id>",
		Short: "Show prediction history for a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/api/patients/"+url.PathEscape(args[0])+"/predictions", nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("history failed: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	patientsCmd.AddCommand(patientsListCmd, patientsGetCmd)
	predictionsCmd.AddCommand(predictCmd, historyCmd)
	root.AddCommand(loginCmd, logoutCmd, sessionCmd, dashboardCmd, patientsCmd, predictionsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
