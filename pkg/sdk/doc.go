// Package researchrag embeds the research assistant pipeline in a Go program
// backed by Redis (with the search module) or Postgres.
//
// The client answers questions from loaded research projects and falls back to
// conversational replies when the knowledge base has nothing relevant.
//
//	client, _ := researchrag.New(ctx,
//	    researchrag.WithRedis("localhost:6379", ""),
//	    researchrag.WithCompleter(myModel),
//	)
//	defer client.Close()
//
//	results := client.Blocks().Load(ctx, projects)
//	answer, _ := client.Ask(ctx, "How do acoustics affect classrooms?", nil, "")
//	deeper, _ := client.Deep(ctx, "How do acoustics affect classrooms?", answer.Text, nil, "")
package researchrag
