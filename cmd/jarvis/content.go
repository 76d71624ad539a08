package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aniketverma/jarvis-portfolio/internal/content"
	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/spf13/cobra"
)

func (a *app) profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print the portfolio profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c := a.contentClient()

			pd, err := c.PersonalData(ctx)
			if err != nil {
				return fmt.Errorf("failed to load personal data: %w", err)
			}
			skills, err := c.Skills(ctx)
			if err != nil {
				return fmt.Errorf("failed to load skills: %w", err)
			}
			exp, err := c.Experience(ctx)
			if err != nil {
				return fmt.Errorf("failed to load experience: %w", err)
			}
			projects, err := c.Projects(ctx)
			if err != nil {
				return fmt.Errorf("failed to load projects: %w", err)
			}
			achievements, err := c.Achievements(ctx)
			if err != nil {
				return fmt.Errorf("failed to load achievements: %w", err)
			}

			a.printProfile(models.Portfolio{
				Personal:     pd,
				Skills:       skills,
				Experience:   exp,
				Projects:     projects,
				Achievements: achievements,
			})
			return nil
		},
	}
}

func (a *app) printProfile(p models.Portfolio) {
	w := a.out
	if p.Personal == nil {
		fmt.Fprintln(w, a.st.dim.Render("No profile published yet."))
	} else {
		pd := p.Personal
		fmt.Fprintln(w, a.st.heading.Render(pd.Name)+" "+a.st.dim.Render(pd.Role))
		if pd.Tagline != "" {
			fmt.Fprintln(w, pd.Tagline)
		}
		for _, d := range pd.About.Description {
			fmt.Fprintln(w)
			fmt.Fprintln(w, d)
		}
	}

	section(w, a.st, "Skills", len(p.Skills))
	for _, s := range p.Skills {
		fmt.Fprintf(w, "  %s: %s\n", s.Category, strings.Join(s.Items, ", "))
	}

	section(w, a.st, "Experience", len(p.Experience))
	for _, e := range p.Experience {
		fmt.Fprintf(w, "  %s, %s %s\n", e.Role, e.Company, a.st.dim.Render(e.Period))
		for _, ach := range e.Achievements {
			fmt.Fprintf(w, "    - %s\n", ach)
		}
	}

	section(w, a.st, "Projects", len(p.Projects))
	for _, pr := range p.Projects {
		fmt.Fprintf(w, "  %s %s\n", pr.Title, a.st.dim.Render(strings.Join(pr.Tech, " · ")))
		if pr.Description != "" {
			fmt.Fprintf(w, "    %s\n", pr.Description)
		}
	}

	section(w, a.st, "Achievements", len(p.Achievements))
	for _, ach := range p.Achievements {
		fmt.Fprintf(w, "  %s %s\n", a.st.ok.Render(ach.Metric), ach.Label)
	}
}

func section(w io.Writer, st styles, title string, n int) {
	if n == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.heading.Render(title))
}

func (a *app) blogCmd() *cobra.Command {
	var category, search string
	cmd := &cobra.Command{
		Use:   "blog [slug]",
		Short: "List blog posts, or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.contentClient()
			if len(args) == 1 {
				post, err := c.BlogPost(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to load post %q: %w", args[0], err)
				}
				a.printPost(post)
				return nil
			}

			posts, err := c.BlogPosts(cmd.Context(), category, search)
			if err != nil {
				return fmt.Errorf("failed to list posts: %w", err)
			}
			if len(posts) == 0 {
				fmt.Fprintln(a.out, a.st.dim.Render("No posts found."))
				return nil
			}
			for _, p := range posts {
				fmt.Fprintf(a.out, "%s %s\n", a.st.heading.Render(p.Title), a.st.dim.Render(p.Slug))
				fmt.Fprintf(a.out, "  %s\n", a.st.dim.Render(postMeta(p)))
				if p.Excerpt != "" {
					fmt.Fprintf(a.out, "  %s\n", p.Excerpt)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only posts in this category")
	cmd.Flags().StringVar(&search, "search", "", "only posts whose title or excerpt mention this")
	return cmd
}

func (a *app) printPost(p models.BlogPost) {
	fmt.Fprintln(a.out, a.st.heading.Render(p.Title))
	fmt.Fprintln(a.out, a.st.dim.Render(postMeta(p)))
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, strings.TrimSpace(p.Content))
}

func postMeta(p models.BlogPost) string {
	parts := []string{}
	if !p.PublishedAt.IsZero() {
		parts = append(parts, p.PublishedAt.Format("Jan 2, 2006"))
	}
	if p.Category != "" {
		parts = append(parts, p.Category)
	}
	if p.ReadTime > 0 {
		parts = append(parts, fmt.Sprintf("%d min read", p.ReadTime))
	}
	parts = append(parts, fmt.Sprintf("%d views", p.Views))
	return strings.Join(parts, " · ")
}

func (a *app) contactCmd() *cobra.Command {
	var q models.ServiceQuery
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Send a message through the contact form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form := content.NewForm(a.contentClient(), content.WithStatusChange(func(s content.FormStatus) {
				a.logger.Debug("Contact form", slog.String("status", s.String()))
			}))
			if err := form.Submit(cmd.Context(), q); err != nil {
				fmt.Fprintln(a.out, a.st.err.Render("Transmission failed: "+err.Error()))
				return err
			}
			fmt.Fprintln(a.out, a.st.ok.Render("Message sent. Aniket will get back to you soon."))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Name, "name", "", "your name")
	f.StringVar(&q.Email, "email", "", "your email address")
	f.StringVar(&q.Subject, "subject", "", "what it is about")
	f.StringVar(&q.Message, "message", "", "the message")
	return cmd
}
