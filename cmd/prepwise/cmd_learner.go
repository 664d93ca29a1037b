package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/gamification"
)

type progressView struct {
	Level       int            `json:"level"`
	XP          int            `json:"xp"`
	Streak      int            `json:"streak"`
	TotalXP     int            `json:"total_xp"`
	NextLevelXP int            `json:"next_level_xp"`
	Badges      []domain.Badge `json:"badges"`
}

type streakView struct {
	State     progressView `json:"state"`
	Changed   bool         `json:"changed"`
	NewBadges []string     `json:"new_badges"`
	Warnings  []string     `json:"warnings"`
}

// cmdLogin signs in as a student, or as a mentor with --mentor
func cmdLogin(args []string) error {
	if len(args) > 0 && args[0] == "--mentor" {
		return cmdMentorLogin(args[1:])
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: prepwise login <email>")
	}
	email := args[0]

	fmt.Print("Password: ")
	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	var resp struct {
		Token     string      `json:"token"`
		ExpiresAt time.Time   `json:"expires_at"`
		Streak    *streakView `json:"streak"`
	}
	c := newClient(daemonAddr(), "")
	err = c.do(http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    email,
		"password": strings.TrimSpace(password),
	}, &resp)
	if err != nil {
		return err
	}
	if err := saveToken(resp.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	fmt.Printf("✓ Logged in as %s (until %s)\n", domain.NormalizeEmail(email), resp.ExpiresAt.Local().Format(time.RFC822))
	if resp.Streak != nil {
		printStreak(resp.Streak)
	}
	return nil
}

func cmdMentorLogin(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: prepwise login --mentor <student-email> <invite-code>")
	}
	var resp struct {
		Token string `json:"token"`
	}
	c := newClient(daemonAddr(), "")
	err := c.do(http.MethodPost, "/v1/auth/mentor", map[string]string{
		"student_email": args[0],
		"invite_code":   args[1],
	}, &resp)
	if err != nil {
		return err
	}
	if err := saveToken(resp.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Printf("✓ Mentoring %s (read-only)\n", domain.NormalizeEmail(args[0]))
	return nil
}

// cmdInvite creates a mentor invite code
func cmdInvite() error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	var invite struct {
		Code      string    `json:"code"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := c.do(http.MethodPost, "/v1/me/invite", nil, &invite); err != nil {
		return err
	}
	fmt.Printf("Invite code: %s\n", invite.Code)
	fmt.Printf("Valid until: %s\n", invite.ExpiresAt.Local().Format(time.RFC822))
	fmt.Println("Your mentor signs in with 'prepwise login --mentor <your-email> <code>'.")
	return nil
}

// cmdProgress shows level, XP and badges. Mentors see their student.
func cmdProgress() error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	claims, _ := tokenClaims(c.token)
	if claims != nil && claims.Role == domain.RoleMentor {
		var summary struct {
			Student  string       `json:"student"`
			Progress progressView `json:"progress"`
			Mistakes struct {
				Count      int      `json:"mistake_count"`
				WeakTopics []string `json:"weak_topics"`
			} `json:"mistakes"`
		}
		if err := c.do(http.MethodGet, "/v1/mentor/summary", nil, &summary); err != nil {
			return err
		}
		fmt.Printf("Student: %s\n\n", summary.Student)
		printProgress(summary.Progress)
		fmt.Printf("\nMistakes:    %d\n", summary.Mistakes.Count)
		if len(summary.Mistakes.WeakTopics) > 0 {
			fmt.Printf("Weak topics: %s\n", strings.Join(summary.Mistakes.WeakTopics, ", "))
		}
		return nil
	}

	var p progressView
	if err := c.do(http.MethodGet, "/v1/me/progress", nil, &p); err != nil {
		return err
	}
	printProgress(p)
	return nil
}

func printProgress(p progressView) {
	fmt.Printf("Level %d  %s %d/%d XP\n", p.Level,
		renderProgressBar(float64(p.XP)/float64(max(p.NextLevelXP, 1)), 20), p.XP, p.NextLevelXP)
	fmt.Printf("Total XP: %d\n", p.TotalXP)
	fmt.Printf("Streak:   %d day(s)\n", p.Streak)
	if len(p.Badges) == 0 {
		fmt.Println("Badges:   none yet")
		return
	}
	fmt.Println("Badges:")
	for _, b := range p.Badges {
		fmt.Printf("  %-14s %s\n", b.Name, b.Description)
	}
}

// cmdStreak records today's session
func cmdStreak() error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	var res streakView
	if err := c.do(http.MethodPost, "/v1/me/streak", nil, &res); err != nil {
		return err
	}
	printStreak(&res)
	return nil
}

func printStreak(s *streakView) {
	switch {
	case !s.Changed:
		fmt.Printf("Streak: %d day(s), already counted today\n", s.State.Streak)
	case s.State.Streak == 1:
		fmt.Println("Streak: 1 day, a fresh start")
	default:
		fmt.Printf("Streak: %d days in a row 🔥\n", s.State.Streak)
	}
	for _, b := range s.NewBadges {
		fmt.Printf("Unlocked badge: %s\n", b)
	}
	for _, w := range s.Warnings {
		fmt.Printf("⚠ %s\n", w)
	}
}

// cmdMistakes lists or clears the mistake journal
func cmdMistakes(args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}

	path := "/v1/me/mistakes"
	if claims, _ := tokenClaims(c.token); claims != nil && claims.Role == domain.RoleMentor {
		path = "/v1/mentor/mistakes"
	}

	if len(args) > 0 {
		switch args[0] {
		case "clear":
			if err := c.do(http.MethodDelete, "/v1/me/mistakes", nil, nil); err != nil {
				return err
			}
			fmt.Println("✓ Mistake journal cleared")
			return nil
		case "topics":
			var resp struct {
				Topics []struct {
					Topic string `json:"topic"`
					Count int    `json:"count"`
				} `json:"topics"`
			}
			if err := c.do(http.MethodGet, "/v1/me/weak-topics", nil, &resp); err != nil {
				return err
			}
			if len(resp.Topics) == 0 {
				fmt.Println("No mistakes yet.")
				return nil
			}
			for _, t := range resp.Topics {
				fmt.Printf("  %-28s %d\n", t.Topic, t.Count)
			}
			return nil
		default:
			if _, err := strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("unknown mistakes command: %s (valid: clear, topics, <limit>)", args[0])
			}
			path += "?limit=" + args[0]
		}
	}

	var resp struct {
		Count    int              `json:"count"`
		Mistakes []domain.Mistake `json:"mistakes"`
	}
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}
	if resp.Count == 0 {
		fmt.Println("No mistakes recorded. 🎯")
		return nil
	}
	for i, m := range resp.Mistakes {
		fmt.Printf("%d. [%s] %s\n", i+1, m.Question.Topic, m.Question.Question)
		fmt.Printf("   your answer: %s   correct: %s   (%s)\n",
			m.UserAnswer, m.Question.Answer, m.Time().Local().Format("02 Jan 15:04"))
	}
	return nil
}

// cmdLeaderboard shows the top learners
func cmdLeaderboard(args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	path := "/v1/leaderboard"
	if len(args) > 0 {
		path += "?n=" + args[0]
	}
	var resp struct {
		Entries []gamification.LeaderboardEntry `json:"entries"`
	}
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}
	fmt.Println("Rank  Learner                        Level  Total XP")
	for _, e := range resp.Entries {
		marker := " "
		if e.IsCurrentUser {
			marker = "*"
		}
		fmt.Printf("%s%-4d %-30s %5d  %8d\n", marker, e.Rank, e.User, e.Level, e.TotalXP)
	}
	return nil
}

// cmdPresets lists the exam presets. No login needed.
func cmdPresets() error {
	var resp struct {
		Presets []struct {
			Mode            domain.ExamMode     `json:"mode"`
			Subjects        map[string][]string `json:"subjects"`
			TotalQuestions  int                 `json:"total_questions"`
			DurationMinutes int                 `json:"duration_minutes"`
		} `json:"presets"`
	}
	if err := newClient(daemonAddr(), "").do(http.MethodGet, "/v1/presets", nil, &resp); err != nil {
		return err
	}
	for _, p := range resp.Presets {
		fmt.Printf("%s: %d questions, %dh%02dm\n", p.Mode, p.TotalQuestions, p.DurationMinutes/60, p.DurationMinutes%60)
		preset := domain.ExamPreset{Subjects: p.Subjects}
		for _, subject := range preset.SubjectNames() {
			fmt.Printf("  %-12s %s\n", subject, strings.Join(p.Subjects[subject], ", "))
		}
	}
	return nil
}

// cmdLogout removes the stored token
func cmdLogout() error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token: %w", err)
	}
	fmt.Println("✓ Logged out")
	return nil
}
